// Package document converts instrument call results into typed XML documents.
package document

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"observe/internal/domain"
)

// Decode copies the values of src into the struct pointed to by dst. Each
// field is bound to a key by its `rpc` tag. A key is looked up as written,
// then upper-cased, then lower-cased. Missing keys leave the zero value.
// Strings are trimmed. A value that cannot be converted to the field's type
// yields domain.ErrInternal.
func Decode(src map[string]any, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: decode target must be a struct pointer, got %T", domain.ErrInternal, dst)
	}
	v = v.Elem()
	t := v.Type()
	for i := range t.NumField() {
		key := t.Field(i).Tag.Get("rpc")
		if key == "" || key == "-" {
			continue
		}
		raw, ok := lookup(src, key)
		if !ok || raw == nil {
			continue
		}
		if err := assign(v.Field(i), raw); err != nil {
			return fmt.Errorf("%w: field %q: %v", domain.ErrInternal, key, err)
		}
	}
	return nil
}

func lookup(src map[string]any, key string) (any, bool) {
	if v, ok := src[key]; ok {
		return v, true
	}
	if v, ok := src[strings.ToUpper(key)]; ok {
		return v, true
	}
	v, ok := src[strings.ToLower(key)]
	return v, ok
}

func assign(field reflect.Value, raw any) error {
	switch field.Kind() {
	case reflect.String:
		s, err := toString(raw)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := toInt(raw)
		if err != nil {
			return err
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, field.Type())
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(raw)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := toBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case int, int32, int64, bool:
		return fmt.Sprint(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", raw)
	}
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", raw)
	}
}
