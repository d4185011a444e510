package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Bind decodes args into the struct pointed to by out and checks its
// `validate` tags. Field names come from `json` tags. Scalars are converted
// loosely ("3" binds to an int), a JSON-encoded string binds to a slice or
// struct field, and unknown keys are rejected.
func Bind(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       jsonStringHook,
	})
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	if err := structValidator().Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is absent", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

// jsonStringHook decodes a string holding a JSON array or object into slice,
// map and struct targets. Models sometimes double-encode nested arguments.
func jsonStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Slice, reflect.Map, reflect.Struct:
	default:
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" || (s[0] != '[' && s[0] != '{') {
		return data, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return data, nil
	}
	return v, nil
}
