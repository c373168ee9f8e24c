package validation

import (
	"reflect"
	"strings"
)

// Sanitize trims whitespace from all string fields of the struct v points to.
func Sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() || field.Kind() != reflect.String {
			continue
		}
		field.SetString(strings.TrimSpace(field.String()))
	}
}
