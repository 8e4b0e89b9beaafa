package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError carries one message per failing field.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error lists the field messages sorted by field name.
func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + v.Errors[field]
	}
	return strings.Join(parts, "; ")
}

// NewValidationError converts validator output into field messages.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	v := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		v.Errors[fe.Field()] = fieldMessage(fe)
	}
	return v
}

// AddError sets the message for field.
func (v *ValidationError) AddError(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string]string)
	}
	v.Errors[field] = message
}

// HasErrors reports whether any field failed.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// GetFieldError returns the message recorded for field.
func (v *ValidationError) GetFieldError(field string) (string, bool) {
	msg, ok := v.Errors[field]
	return msg, ok
}

var simpleMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"uuid":     "must be a valid UUID",
	"url":      "must be a valid URL",
	"alphanum": "must contain only alphanumeric characters",
	"numeric":  "must be numeric",
}

var boundMessages = map[string]string{
	"gte": "must be greater than or equal to",
	"lte": "must be less than or equal to",
	"gt":  "must be greater than",
	"lt":  "must be less than",
}

func fieldMessage(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if msg, ok := simpleMessages[tag]; ok {
		return field + " " + msg
	}
	if msg, ok := boundMessages[tag]; ok {
		return fmt.Sprintf("%s %s %s", field, msg, param)
	}
	switch tag {
	case "min", "max", "len":
		qualifier := map[string]string{"min": "at least", "max": "at most", "len": "exactly"}[tag]
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters long", field, qualifier, param)
		}
		return fmt.Sprintf("%s must have %s %s items", field, qualifier, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	}
	for _, enum := range enumTags {
		if enum.name == tag {
			return fmt.Sprintf("%s must be %s: %s", field, enum.label, strings.Join(enum.values, ", "))
		}
	}
	return field + " is invalid"
}
