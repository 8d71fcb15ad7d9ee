package errors

import (
	"errors"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// TranslateValidatorError takes an error from the go-playground validator
// (internally just a map of errors) and converts it into a plain error with a
// user friendly message, since the validator's own errors expose struct
// namespaces that mean nothing to API callers.
func TranslateValidatorError(err error, trans ut.Translator) error {
	switch err.(type) {
	case validator.ValidationErrors:
		errs := (err.(validator.ValidationErrors)).Translate(trans)

		vals := make([]string, 0, len(errs))

		for _, value := range errs {
			vals = append(vals, value)
		}

		return errors.New(strings.Join(vals, " "))
	default:
		return err
	}
}
