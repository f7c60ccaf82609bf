package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// ValidationError is a single argument that does not fit the schema.
type ValidationError struct {
	Path    string // dotted path to the argument, "" for the root
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}

	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = "  - " + err.Error()
	}
	return "validation failed:\n" + strings.Join(lines, "\n")
}

// Validate checks raw JSON arguments. Empty data and a JSON null are
// treated as an empty object.
func (s *Schema) Validate(data json.RawMessage) error {
	var value any = map[string]any{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &value); err != nil {
			return &ValidationError{Message: fmt.Sprintf("invalid JSON: %s", err)}
		}
	}
	return s.ValidateValue(value)
}

// ValidateValue checks a decoded value.
func (s *Schema) ValidateValue(value any) error {
	v := &validator{}
	v.check(s, "", value)
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

// ValidateStrings checks a flat string argument map, as carried by prompt
// requests.
func (s *Schema) ValidateStrings(args map[string]string) error {
	obj := make(map[string]any, len(args))
	for k, v := range args {
		obj[k] = v
	}
	return s.ValidateValue(obj)
}

type validator struct {
	errs ValidationErrors
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// check validates value at path. A null matches any type; whether it may
// stand in for a required argument is decided by the enclosing object.
func (v *validator) check(s *Schema, path string, value any) {
	if value == nil {
		return
	}

	switch s.Type {
	case typeObject:
		v.object(s, path, value)
	case typeArray:
		v.array(s, path, value)
	case typeString:
		str, ok := value.(string)
		if !ok {
			v.fail(path, "expected string, got %T", value)
			return
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, any(str)) {
			v.fail(path, "value must be one of: %v", s.Enum)
		}
	case typeInteger:
		n, ok := number(value)
		if !ok {
			v.fail(path, "expected integer, got %T", value)
			return
		}
		if n != float64(int64(n)) {
			v.fail(path, "expected integer, got decimal number")
			return
		}
		v.bounds(s, path, n)
	case typeNumber:
		n, ok := number(value)
		if !ok {
			v.fail(path, "expected number, got %T", value)
			return
		}
		v.bounds(s, path, n)
	case typeBoolean:
		if _, ok := value.(bool); !ok {
			v.fail(path, "expected boolean, got %T", value)
		}
	}
}

func (v *validator) object(s *Schema, path string, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %T", value)
		return
	}

	for _, name := range s.Required {
		if obj[name] == nil {
			v.fail(joinPath(path, name), "required field is missing")
		}
	}

	if s.Closed() {
		var unexpected []string
		for name := range obj {
			if _, declared := s.Properties[name]; !declared {
				unexpected = append(unexpected, name)
			}
		}
		slices.Sort(unexpected)
		for _, name := range unexpected {
			v.fail(joinPath(path, name), "unexpected field")
		}
	}

	for _, name := range s.PropertyNames() {
		if val, ok := obj[name]; ok {
			v.check(s.Properties[name], joinPath(path, name), val)
		}
	}
}

func (v *validator) array(s *Schema, path string, value any) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		v.fail(path, "expected array, got %T", value)
		return
	}
	if s.Items == nil {
		return
	}
	for i := range rv.Len() {
		v.check(s.Items, fmt.Sprintf("%s[%d]", path, i), rv.Index(i).Interface())
	}
}

func (v *validator) bounds(s *Schema, path string, n float64) {
	if s.Minimum != nil && n < *s.Minimum {
		v.fail(path, "value %v is less than minimum %v", n, *s.Minimum)
	}
	if s.Maximum != nil && n > *s.Maximum {
		v.fail(path, "value %v is greater than maximum %v", n, *s.Maximum)
	}
}

// number widens the numeric types a decoded or hand-built argument map can
// carry.
func number(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
