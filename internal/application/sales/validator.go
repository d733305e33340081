package sales

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MsgNoItems is reported when a create or update request has no lines
const MsgNoItems = "A sale must have at least one item."

const dateLayout = "2006-01-02"

// SaleRequestValidator performs the structural checks on sale requests
// before they reach the pricing engine. It is safe for concurrent use;
// build one and share it.
type SaleRequestValidator struct {
	v *validator.Validate
}

// NewSaleRequestValidator builds the validator with JSON field names and
// the uuid/decimal type adapters registered.
func NewSaleRequestValidator() *SaleRequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	// uuid.Nil reads as empty so "required" rejects it
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if id, ok := field.Interface().(uuid.UUID); ok && id != uuid.Nil {
			return id.String()
		}
		return ""
	}, uuid.UUID{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("money", validateMoney)

	return &SaleRequestValidator{v: v}
}

// validateMoney checks the original decimal, the field itself arrives
// already converted to float64 by the custom type func.
func validateMoney(fl validator.FieldLevel) bool {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	d, ok := parent.FieldByName(fl.StructFieldName()).Interface().(decimal.Decimal)
	return ok && sales.HasPriceScale(d)
}

// ValidateCreate checks a create request
func (sv *SaleRequestValidator) ValidateCreate(req CreateSaleRequest) error {
	return sv.validateStruct(req)
}

// ValidateUpdate checks an update request
func (sv *SaleRequestValidator) ValidateUpdate(req UpdateSaleRequest) error {
	return sv.validateStruct(req)
}

// ValidateList checks the list query and converts it into a repository
// filter with page defaults applied. A date-only endDate covers the whole day.
func (sv *SaleRequestValidator) ValidateList(q ListSalesQuery) (sales.SaleFilter, error) {
	var fields []shared.FieldError
	if err := sv.validateStruct(q); err != nil {
		var ve *shared.ValidationError
		if !errors.As(err, &ve) {
			return sales.SaleFilter{}, err
		}
		fields = append(fields, ve.Fields...)
	}

	filter := sales.SaleFilter{Page: 1, PageSize: sales.DefaultPageSize}
	if q.Page != nil {
		filter.Page = *q.Page
	}
	if q.PageSize != nil {
		filter.PageSize = *q.PageSize
	}

	start, ok := parseQueryDate(q.StartDate, false)
	if !ok {
		fields = append(fields, invalidDate("startDate"))
	}
	end, endOK := parseQueryDate(q.EndDate, true)
	if !endOK {
		fields = append(fields, invalidDate("endDate"))
	}
	if start != nil && end != nil && end.Before(*start) {
		fields = append(fields, shared.FieldError{
			Field:   "endDate",
			Message: "End date must be on or after start date",
			Code:    "gtefield",
		})
	}
	filter.StartDate, filter.EndDate = start, end

	if id, err := uuid.Parse(q.CustomerID); err == nil {
		filter.CustomerID = &id
	}
	if id, err := uuid.Parse(q.BranchID); err == nil {
		filter.BranchID = &id
	}

	if len(fields) > 0 {
		return sales.SaleFilter{}, shared.NewValidationError(fields...)
	}
	return filter, nil
}

func (sv *SaleRequestValidator) validateStruct(s any) error {
	err := sv.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]shared.FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, shared.FieldError{
			Field:   fieldPath(e),
			Message: validationMessage(e),
			Code:    e.Tag(),
		})
	}
	return shared.NewValidationError(fields...)
}

// fieldPath drops the struct type name, e.g. "items[0].quantity"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(e validator.FieldError) string {
	switch {
	case e.Field() == "items" && e.Tag() == "min":
		return MsgNoItems
	case e.Field() == "quantity":
		return "Quantity must be between 1 and 20"
	case e.Field() == "unitPrice" && e.Tag() == "money":
		return sales.ErrUnitPricePrecision.Message
	case e.Field() == "unitPrice":
		return "Unit price must be greater than zero"
	}

	switch e.Tag() {
	case "required":
		return "This field is required"
	case "notblank":
		return "This field cannot be empty"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}

// parseQueryDate returns nil for an empty value and ok=false for a malformed one.
// Date-only values resolve to the start of the day, or its last instant when endOfDay is set.
func parseQueryDate(s string, endOfDay bool) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, true
}

func invalidDate(field string) shared.FieldError {
	return shared.FieldError{
		Field:   field,
		Message: "Must be a date (yyyy-MM-dd) or an RFC 3339 timestamp",
		Code:    "datetime",
	}
}
