package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/asinrank/internal/domain/model"
)

const codeValidation = "VALIDATION_ERROR"

var (
	validate     *validator.Validate //nolint:gochecknoglobals // singleton caches struct metadata
	validateOnce sync.Once           //nolint:gochecknoglobals // guards validate
)

// getValidator returns the shared validator. Field errors are reported by
// their query parameter name. The asinlen and namelen aliases carry the
// column widths of the observation model.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterAlias("asinlen", fmt.Sprintf("max=%d", model.MaxASINLength))
		validate.RegisterAlias("namelen", fmt.Sprintf("max=%d", model.MaxCategoryNameLength))
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// fieldError is one rejected query parameter.
type fieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// validationError collects every rejected parameter of a request.
type validationError struct {
	fields []fieldError
}

func (e *validationError) Error() string {
	if len(e.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.fields))
	for i, f := range e.fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// response renders the error as the API's VALIDATION_ERROR body.
func (e *validationError) response() errorResponse {
	if len(e.fields) == 1 {
		f := e.fields[0]
		return errorResponse{
			Error:   f.Message,
			Code:    codeValidation,
			Details: map[string]any{"field": f.Field, "tag": f.Tag},
		}
	}
	return errorResponse{
		Error:   e.Error(),
		Code:    codeValidation,
		Details: map[string]any{"fields": e.fields},
	}
}

// validateStruct runs the shared validator and translates its errors.
func validateStruct(v any) *validationError {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &validationError{fields: []fieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}
	out := &validationError{fields: make([]fieldError, len(verrs))}
	for i, fe := range verrs {
		out.fields[i] = fieldError{Field: fe.Field(), Tag: fe.ActualTag(), Message: translate(fe)}
	}
	return out
}

func translate(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "number":
		return fmt.Sprintf("%s must be a non-negative integer", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.ActualTag())
	}
}
