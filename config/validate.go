package config

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/skillsenselab/resilix/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their mapstructure key, as users see them
		// in YAML and env vars.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// validateStruct validates s against its `validate` struct tags and maps
// failures onto an INVALID_CONFIG error with per-field details.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.InvalidConfig("config validation failed").WithCause(err)
	}

	messages := make([]string, 0, len(verrs))
	appErr := errors.InvalidConfig("")
	for _, e := range verrs {
		msg := formatFieldError(e)
		messages = append(messages, e.Field()+" "+msg)
		appErr = appErr.WithDetail(e.Field(), msg)
	}
	appErr.Message = strings.Join(messages, "; ")
	return appErr
}

// formatFieldError creates a human-readable message for one failure.
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of [" + e.Param() + "]"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	default:
		return "failed " + e.Tag() + " validation"
	}
}
