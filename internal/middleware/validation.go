package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validationMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"min":      "is too short",
	"max":      "is too long",
	"len":      "has the wrong length",
	"numeric":  "must be numeric",
	"oneof":    "has an unsupported value",
	"url":      "must be a valid URL",
	"objectid": "must be a valid id",
	"datetime": "has an invalid date format",
}

var registerOnce sync.Once

// RegisterValidators installs the json tag-name func and custom rules on gin's
// validator. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
	})
}

// ValidationErrors flattens a binding error into per-field messages.
func ValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := validationMessages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed %s validation", e.Tag())
		}
		out = append(out, ValidationError{Field: e.Field(), Message: msg})
	}
	return out
}

// ValidationMessage renders a binding error as one line for the error envelope.
func ValidationMessage(err error) string {
	fields := ValidationErrors(err)
	if len(fields) == 0 {
		return "Invalid request body"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Field + " " + f.Message
	}
	return strings.Join(parts, "; ")
}
