package server

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ExtractParams decodes the parameters bound from a URI template into a
// struct. Fields are matched by their `uri` tag, falling back to the json
// tag name. A field tagged `uri:"name,required"` must be present.
//
//	type contentParams struct {
//	    DocID string `uri:"doc_id,required"`
//	}
//
//	srv.Resource("docs://content/{doc_id}").Handler(func(ctx context.Context, uri string, params map[string]string) (*server.ResourceContent, error) {
//	    p, err := server.ExtractParams[contentParams](params)
//	    if err != nil {
//	        return nil, err
//	    }
//	    // use p.DocID
//	})
func ExtractParams[T any](params map[string]string) (T, error) {
	var result T
	rv := reflect.ValueOf(&result).Elem()
	rt := rv.Type()

	if rt.Kind() != reflect.Struct {
		return result, fmt.Errorf("ExtractParams: T must be a struct type, got %s", rt.Kind())
	}

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name, required := paramTag(field)
		if name == "" {
			continue
		}

		value, ok := params[name]
		if !ok {
			if required {
				return result, fmt.Errorf("ExtractParams: missing parameter %q", name)
			}
			continue
		}

		if err := setFieldValue(rv.Field(i), value); err != nil {
			return result, fmt.Errorf("ExtractParams: field %s: %w", field.Name, err)
		}
	}

	return result, nil
}

func paramTag(field reflect.StructField) (name string, required bool) {
	if tag, ok := field.Tag.Lookup("uri"); ok {
		var opts string
		name, opts, _ = strings.Cut(tag, ",")
		return name, opts == "required"
	}
	name, _, _ = strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return "", false
	}
	return name, false
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int: %w", err)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint: %w", err)
		}
		field.SetUint(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}
