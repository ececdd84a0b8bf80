package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"finboard/internal/dto"
	"finboard/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// earliestDate is the oldest transaction date accepted.
var earliestDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// maxAmount is the largest amount every store can hold exactly.
var maxAmount = decimal.RequireFromString("9999999999.99")

var fieldMessages = map[string]map[string]string{
	"description": {
		"required": "Description must be at least 2 characters.",
		"min":      "Description must be at least 2 characters.",
		"max":      "Description must be at most 100 characters.",
	},
	"amount": {
		"required":  "Amount must be a positive number.",
		"gt":        "Amount must be a positive number.",
		"cents":     "Amount must have at most 2 decimal places.",
		"maxamount": "Amount must be at most 9999999999.99.",
	},
	"category": {
		"required": "Please select a category.",
		"category": "Please select a category.",
	},
	"date": {
		"required":       "Please select a date.",
		"txdate":         "Date must be formatted as YYYY-MM-DD.",
		"notfuture":      "Date cannot be in the future.",
		"notbeforefloor": "Date cannot be before 1900-01-01.",
	},
}

// Validator checks transaction input at the boundary, before any store call.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled()), now: now}

	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails for empty tags or nil funcs.
	_ = v.validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.TransactionCategory(fl.Field().String()).Valid()
	})
	_ = v.validate.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		d, ok := decimalField(fl)
		return ok && d.Equal(d.Truncate(2))
	})
	_ = v.validate.RegisterValidation("maxamount", func(fl validator.FieldLevel) bool {
		d, ok := decimalField(fl)
		return ok && d.LessThanOrEqual(maxAmount)
	})
	_ = v.validate.RegisterValidation("txdate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		d, err := parseDate(fl.Field().String())
		return err == nil && !d.After(v.today())
	})
	_ = v.validate.RegisterValidation("notbeforefloor", func(fl validator.FieldLevel) bool {
		d, err := parseDate(fl.Field().String())
		return err == nil && !d.Before(earliestDate)
	})

	return v
}

// Transaction validates req and returns the fields to store. Description is
// trimmed before its length is checked.
func (v *Validator) Transaction(req *dto.TransactionRequest) (models.TransactionFields, error) {
	if req == nil {
		return models.TransactionFields{}, &ValidationError{Fields: map[string]string{"body": "Request body is required."}}
	}
	normalized := *req
	normalized.Description = strings.TrimSpace(sanitizeUTF8(req.Description))
	normalized.Category = strings.TrimSpace(req.Category)
	normalized.Date = strings.TrimSpace(req.Date)

	if err := v.validate.Struct(&normalized); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.TransactionFields{}, err
		}
		return models.TransactionFields{}, toValidationError(verrs)
	}

	date, _ := parseDate(normalized.Date)
	return models.TransactionFields{
		Amount:      normalized.Amount,
		Category:    models.TransactionCategory(normalized.Category),
		Description: normalized.Description,
		Date:        date,
	}, nil
}

func (v *Validator) today() time.Time {
	now := v.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// decimalField reads the field as the decimal it was declared as. The
// registered type func only exposes a float64 view of it.
func decimalField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	f := reflect.Indirect(fl.Parent()).FieldByName(fl.StructFieldName())
	if !f.IsValid() {
		return decimal.Decimal{}, false
	}
	d, ok := f.Interface().(decimal.Decimal)
	return d, ok
}

func toValidationError(verrs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		msg, ok := fieldMessages[name][fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		fields[name] = msg
	}
	return &ValidationError{Fields: fields}
}

// parseDate accepts a calendar day or a full RFC 3339 timestamp and returns
// midnight UTC of that day.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(dto.DateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
