package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"customer-api/internal/domain"
)

var validate = validator.New()

// ValidationError reports required fields that were absent or empty.
// Fields echoes every checked field with the value received, Missing names
// the failing ones in declaration order.
type ValidationError struct {
	Fields  map[string]any
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required values: " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidInput
}

// ValidateRequired checks that every required field is present and holds a
// non-zero value. Missing keys, null, "", 0 and false all fail.
func ValidateRequired(doc domain.Document, required []string) error {
	if len(required) == 0 {
		return nil
	}

	data := make(map[string]interface{}, len(required))
	rules := make(map[string]interface{}, len(required))
	for _, field := range required {
		data[field] = doc[field]
		rules[field] = "required"
	}

	failures := validate.ValidateMap(data, rules)
	if len(failures) == 0 {
		return nil
	}

	verr := &ValidationError{Fields: make(map[string]any, len(required))}
	for _, field := range required {
		verr.Fields[field] = doc[field]
		if _, failed := failures[field]; failed {
			verr.Missing = append(verr.Missing, field)
		}
	}
	return verr
}
