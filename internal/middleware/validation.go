package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/AZMA1N/Debate-Calender/internal/model"
)

// ValidationError names one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errorMessages = map[string]string{
	"required": "field is required",
	"email":    "invalid email format",
	"uuid":     "must be a UUID",
	"url":      "must be a URL",
	"min":      "value is too small",
	"max":      "value is too large",
	"gte":      "value is too small",
	"lte":      "value is too large",
	"category": "unknown category",
}

// RegisterValidators installs the custom binding tags on gin's validator and
// reports fields by their json names. Call once at startup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.Category(fl.Field().String()).Valid()
	})
}

// ValidationErrors flattens a binding error into per-field messages. It
// returns nil for errors that are not validator errors.
func ValidationErrors(err error) []ValidationError {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg := errorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, ValidationError{Field: e.Field(), Message: msg})
	}
	return out
}
