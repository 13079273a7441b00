package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct tag validation and folds failures into
// ErrInvalidInput with the offending fields named.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(parts, ", "))
}

func validPayload(p json.RawMessage) error {
	if len(p) == 0 {
		return nil
	}
	if !json.Valid(p) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrInvalidInput)
	}
	return nil
}
