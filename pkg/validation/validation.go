// Package validation wraps go-playground/validator with English messages
// keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

// Validator validates request payloads.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New builds a validator that reports JSON tag names in its messages.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{validate: v, trans: trans}
}

// Struct validates payload and returns a VALIDATION_ERROR carrying one
// message per offending field.
func (v *Validator) Struct(payload interface{}) error {
	if err := v.validate.Struct(payload); err != nil {
		return appErrors.WithFields(appErrors.ErrValidation, v.Translate(err), "")
	}
	return nil
}

// Translate converts a validation error into field messages. Anything that
// is not a validator error is reported under "detail".
func (v *Validator) Translate(err error) map[string][]string {
	fields := make(map[string][]string)

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = append(fields[fe.Field()], fe.Translate(v.trans))
		}
		return fields
	}

	fields["detail"] = []string{err.Error()}
	return fields
}

// FieldError builds a VALIDATION_ERROR for a single field.
func FieldError(field, message string) error {
	return appErrors.WithFields(appErrors.ErrValidation, map[string][]string{field: {message}}, "")
}
