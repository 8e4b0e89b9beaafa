package validation

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// enumTag is a custom tag accepting a fixed set of values.
type enumTag struct {
	name   string
	label  string
	values []string
}

var enumTags = []enumTag{
	{"order_status", "a valid order status", []string{"pending", "active", "delivered", "completed", "cancelled", "in_revision"}},
	{"report_category", "a valid report category", []string{"non_delivery", "fake_service", "poor_quality", "scam", "overcharge", "harassment", "other"}},
	{"severity", "one of", []string{"low", "medium", "high", "critical"}},
	{"currency", "a supported currency", []string{"USD", "EUR", "GBP", "CAD", "AUD"}},
	{"gig_category", "a listed gig category", []string{
		"Graphics & Design", "Digital Marketing", "Writing & Translation", "Video & Animation",
		"Music & Audio", "Programming & Tech", "Data", "Business", "Lifestyle",
	}},
}

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		for _, tag := range enumTags {
			_ = validate.RegisterValidation(tag.name, oneOfTag(tag.values...))
		}
	})
	return validate
}

func oneOfTag(values ...string) validator.Func {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	}
}

// ValidateStruct validates s and returns a *ValidationError with per-field
// messages when any rule fails.
func ValidateStruct(s interface{}) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// ValidateVar validates a single value against a tag string.
func ValidateVar(field interface{}, tag string) error {
	return get().Var(field, tag)
}
