package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field string
	Tag   string
	Param string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Struct validates data and returns one entry per failing field.
func Struct(data any) []FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Tag: "invalid"}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// Message renders the failure in Arabic for API clients.
func (fe FieldError) Message() string {
	switch fe.Tag {
	case "required", "notblank":
		return fmt.Sprintf("الحقل %s مطلوب", fe.Field)
	case "oneof":
		return fmt.Sprintf("قيمة الحقل %s يجب أن تكون إحدى القيم: %s", fe.Field, fe.Param)
	case "gte", "min":
		return fmt.Sprintf("قيمة الحقل %s يجب ألا تقل عن %s", fe.Field, fe.Param)
	case "gt":
		return fmt.Sprintf("قيمة الحقل %s يجب أن تكون أكبر من %s", fe.Field, fe.Param)
	case "max", "lte":
		return fmt.Sprintf("قيمة الحقل %s يجب ألا تتجاوز %s", fe.Field, fe.Param)
	case "email":
		return fmt.Sprintf("الحقل %s ليس بريداً إلكترونياً صالحاً", fe.Field)
	default:
		return fmt.Sprintf("قيمة الحقل %s غير صالحة", fe.Field)
	}
}

// First returns the message of the first failure, or "" when data is valid.
func First(data any) string {
	errs := Struct(data)
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Message()
}
