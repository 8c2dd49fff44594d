package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

var bloodGroups = map[string]struct{}{
	"A+": {}, "A-": {}, "B+": {}, "B-": {}, "AB+": {}, "AB-": {}, "O+": {}, "O-": {},
}

// NewValidator returns a validator that reports json field names and knows the bloodgroup rule.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("bloodgroup", func(fl validator.FieldLevel) bool {
		_, ok := bloodGroups[strings.ToUpper(strings.TrimSpace(fl.Field().String()))]
		return ok
	})
	return v
}

// validateInput trims every string field of the struct behind ptr, then validates it.
// Fields tagged trim:"-" are left untouched.
func validateInput(v *validator.Validate, ptr interface{}) error {
	trimStrings(ptr)
	return v.Struct(ptr)
}

func trimStrings(ptr interface{}) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if field.Kind() != reflect.String || !field.CanSet() || rt.Field(i).Tag.Get("trim") == "-" {
			continue
		}
		field.SetString(strings.TrimSpace(field.String()))
	}
}

// canonicalProfession folds any casing of "other" to the stored spelling.
func canonicalProfession(profession string) string {
	profession = strings.TrimSpace(profession)
	if strings.EqualFold(profession, professionOther) {
		return professionOther
	}
	return profession
}

// validationError turns validator output into a 400 carrying one message per field.
func validationError(err error, message string) *appErrors.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeFieldError(fe)
	}
	return appErrors.WithFields(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message), fields)
}

func fieldError(message string, fields map[string]string) *appErrors.Error {
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, message), fields)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "bloodgroup":
		return "must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
	case "gt", "gte":
		return "must be greater than " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters long"
	case "numeric":
		return "must be numeric"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
