package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateStruct(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		msgs = append(msgs, messageFor(fieldError))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func messageFor(e validator.FieldError) string {
	field := fieldName(e.StructField())
	switch e.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, e.Param(), fmt.Sprint(e.Value()))
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(e.Param(), " ", " is ", 1))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldName reports the YAML key so messages match what users write in config files.
func fieldName(structField string) string {
	t := reflect.TypeOf(Config{})
	if f, ok := t.FieldByName(structField); ok {
		tag := f.Tag.Get("yaml")
		if tag != "" && tag != "-" {
			return strings.Split(tag, ",")[0]
		}
	}
	return strings.ToLower(structField)
}
