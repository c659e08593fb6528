package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/mess-connect/internal/utils"
)

// ValidationError carries one message per failed field, in field order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Messages, ", ") }

// Validator adapts go-playground/validator to echo.Validator. A field's
// `msg` tag overrides the generated message for any rule it fails, except
// the rules listed in fixedMessages.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", validPhone); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return utils.PasswordFits(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

var fixedMessages = map[string]string{
	"bcryptlen": fmt.Sprintf("Password must be at most %d bytes", utils.MaxPasswordBytes),
}

// validPhone accepts digits with optional spaces, dashes, parentheses and
// a leading plus, as long as there are at least 10 digits.
func validPhone(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')':
		default:
			return false
		}
	}
	return digits >= 10
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return err
	}
	t := reflect.TypeOf(i)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := &ValidationError{}
	seen := make(map[string]bool, len(fes))
	for _, fe := range fes {
		if seen[fe.StructNamespace()] {
			continue
		}
		seen[fe.StructNamespace()] = true
		out.Messages = append(out.Messages, message(t, fe))
	}
	return out
}

func message(t reflect.Type, fe validator.FieldError) string {
	if m, ok := fixedMessages[fe.Tag()]; ok {
		return m
	}
	if t.Kind() == reflect.Struct && strings.Count(fe.StructNamespace(), ".") == 1 {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if m := f.Tag.Get("msg"); m != "" {
				return m
			}
		}
	}
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		return fmt.Sprintf("%s must have exactly %s entries", name, fe.Param())
	case "url", "http_url":
		return name + " must be a valid URL"
	case "phone":
		return "Phone number must be at least 10 digits"
	}
	return name + " is invalid"
}
