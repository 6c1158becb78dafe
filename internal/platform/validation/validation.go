// Package validation wraps go-playground/validator with the careflow rules
// and reports failures as apperr validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/reference"
)

var (
	validate    *validator.Validate
	rgbHexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

var complexityLevels = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

func init() {
	validate = validator.New()

	validate.RegisterValidation("step_type", func(fl validator.FieldLevel) bool {
		return reference.IsStepType(fl.Field().String())
	})
	validate.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		return isColor(fl.Field().String())
	})
	validate.RegisterValidation("complexity", func(fl validator.FieldLevel) bool {
		return complexityLevels[fl.Field().String()]
	})

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// Struct validates s and returns an apperr validation error listing every
// failing field, or nil.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldPath(fe), message(fe)))
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

// isColor reports whether s is a 7-character #RRGGBB value.
func isColor(s string) bool {
	return rgbHexColor.MatchString(s)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "step_type":
		return fmt.Sprintf("unknown step type %q", fe.Value())
	case "rgbhex":
		return fmt.Sprintf("color %q must match #RRGGBB", fe.Value())
	case "complexity":
		return fmt.Sprintf("complexity %q must be one of low, medium, high, critical", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
