package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- {{.Version}}_{{.Name}}
-- Created: {{.Created}}

BEGIN;

COMMIT;
`

const downTemplate = `-- {{.Version}}_{{.Name}} (rollback)
-- Created: {{.Created}}

BEGIN;

COMMIT;
`

var fileTemplates = template.Must(template.New("up").Parse(upTemplate))

func init() {
	template.Must(fileTemplates.New("down").Parse(downTemplate))
}

// File describes a generated up/down migration pair
type File struct {
	Version  string
	Name     string
	Created  string
	UpPath   string
	DownPath string
}

// Create writes an empty up/down pair numbered one past the highest
// existing sequence in dir (000001, 000002, ...).
func Create(dir, name string, now time.Time) (*File, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	next, err := nextVersion(dir)
	if err != nil {
		return nil, err
	}

	f := &File{
		Version: fmt.Sprintf("%06d", next),
		Name:    slug,
		Created: now.UTC().Format(time.RFC3339),
	}
	base := f.Version + "_" + slug
	f.UpPath = filepath.Join(dir, base+".up.sql")
	f.DownPath = filepath.Join(dir, base+".down.sql")

	if err := writeFile(f.UpPath, "up", f); err != nil {
		return nil, err
	}
	if err := writeFile(f.DownPath, "down", f); err != nil {
		_ = os.Remove(f.UpPath)
		return nil, err
	}
	return f, nil
}

func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	highest := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(prefix); err == nil && v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}

func writeFile(path, tmpl string, data *File) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := fileTemplates.ExecuteTemplate(out, tmpl, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}

// sanitizeName lowercases name and collapses separators to single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r == ' ' || r == '-' || r == '_':
			pending = b.Len() > 0
			continue
		default:
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
