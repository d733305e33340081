package sales

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const saleNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SaleNumberSuffixLength is the number of random characters after the date
const SaleNumberSuffixLength = 6

var saleNumberPattern = regexp.MustCompile(`^SALE-\d{8}-[A-Z0-9]{6}$`)

// SaleNumberGenerator produces human-readable sale numbers of the form
// SALE-<yyyyMMdd UTC>-<6 uppercase alphanumerics>. Numbers are not checked
// against storage for uniqueness.
type SaleNumberGenerator struct {
	suffix func() string
}

// NewSaleNumberGenerator returns a generator drawing suffixes from random UUIDs
func NewSaleNumberGenerator() *SaleNumberGenerator {
	return &SaleNumberGenerator{suffix: randomSuffix}
}

// NewSaleNumberGeneratorWithSuffix returns a generator using a fixed suffix source
func NewSaleNumberGeneratorWithSuffix(suffix func() string) *SaleNumberGenerator {
	return &SaleNumberGenerator{suffix: suffix}
}

// Generate returns a sale number for a sale made at t
func (g *SaleNumberGenerator) Generate(t time.Time) string {
	return fmt.Sprintf("SALE-%s-%s", t.UTC().Format("20060102"), g.suffix())
}

// IsValidSaleNumber reports whether s has the sale number format
func IsValidSaleNumber(s string) bool {
	return saleNumberPattern.MatchString(s)
}

// bytes at or above this bound are skipped so every character is equally likely
var suffixByteLimit = 256 - 256%len(saleNumberAlphabet)

func randomSuffix() string {
	return suffixFrom(func() []byte {
		id := uuid.New()
		// bytes 6 and 8 carry the version and variant bits
		out := make([]byte, 0, len(id)-2)
		out = append(out, id[:6]...)
		out = append(out, id[7])
		return append(out, id[9:]...)
	})
}

// suffixFrom fills the suffix from random byte blocks, rejecting biased bytes
func suffixFrom(next func() []byte) string {
	buf := make([]byte, 0, SaleNumberSuffixLength)
	for len(buf) < SaleNumberSuffixLength {
		for _, b := range next() {
			if int(b) >= suffixByteLimit {
				continue
			}
			buf = append(buf, saleNumberAlphabet[int(b)%len(saleNumberAlphabet)])
			if len(buf) == SaleNumberSuffixLength {
				break
			}
		}
	}
	return string(buf)
}
