// Package schema generates and checks the parameter schemas of capabilities.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Schema represents a JSON Schema.
//
// Object schemas remember the declaration order of their properties so that
// discovery lists parameters in the order they were declared.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Description          string             `json:"description,omitempty"`
	Default              any                `json:"default,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	order []string
}

// Param is a single declared parameter of an object schema.
type Param struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Generate creates a JSON Schema from a Go value.
func Generate(v any) (*Schema, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("schema: cannot generate from nil")
	}
	return generateFromType(t)
}

// GenerateFromType creates a JSON Schema from a reflect.Type.
func GenerateFromType(t reflect.Type) (*Schema, error) {
	return generateFromType(t)
}

// Object builds a closed object schema from an ordered parameter list.
// Unknown keys are rejected by Validate.
func Object(params ...Param) *Schema {
	s := &Schema{
		Type:                 typeObject,
		Properties:           make(map[string]*Schema, len(params)),
		AdditionalProperties: boolPtr(false),
	}
	for _, p := range params {
		typ := p.Type
		if typ == "" {
			typ = typeString
		}
		s.addProperty(p.Name, &Schema{Type: typ, Description: p.Description})
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Params returns the declared properties in declaration order.
func (s *Schema) Params() []Param {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}

	names := s.PropertyNames()
	params := make([]Param, 0, len(names))
	for _, name := range names {
		prop := s.Properties[name]
		params = append(params, Param{
			Name:        name,
			Type:        prop.Type,
			Required:    s.IsRequired(name),
			Description: prop.Description,
		})
	}
	return params
}

// PropertyNames returns property names in declaration order.
// Properties added directly to the map without order are appended sorted.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.order {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

// IsRequired reports whether name is a required property.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Closed reports whether the schema rejects properties it does not declare.
func (s *Schema) Closed() bool {
	return s.AdditionalProperties != nil && !*s.AdditionalProperties
}

func (s *Schema) addProperty(name string, prop *Schema) {
	if _, exists := s.Properties[name]; !exists {
		s.order = append(s.order, name)
	}
	s.Properties[name] = prop
}

func generateFromType(t reflect.Type) (*Schema, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return generateStructSchema(t)
	case reflect.String:
		return &Schema{Type: typeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: typeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: typeNumber}, nil
	case reflect.Bool:
		return &Schema{Type: typeBoolean}, nil
	case reflect.Slice, reflect.Array:
		return generateArraySchema(t)
	case reflect.Map:
		return &Schema{Type: typeObject}, nil
	default:
		return &Schema{}, nil
	}
}

// Struct schemas are closed: a call naming a field the struct does not
// declare is malformed.
func generateStructSchema(t reflect.Type) (*Schema, error) {
	schema := &Schema{
		Type:                 typeObject,
		Properties:           make(map[string]*Schema),
		AdditionalProperties: boolPtr(false),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				fieldName = parts[0]
			}
		}

		fieldSchema, err := generateFromType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		if err := parseJSONSchemaTag(field.Tag.Get("jsonschema"), fieldSchema, &schema.Required, fieldName); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.addProperty(fieldName, fieldSchema)
	}

	return schema, nil
}

func generateArraySchema(t reflect.Type) (*Schema, error) {
	itemSchema, err := generateFromType(t.Elem())
	if err != nil {
		return nil, err
	}

	return &Schema{
		Type:  typeArray,
		Items: itemSchema,
	}, nil
}

// parseJSONSchemaTag understands required, description=, minimum=, maximum=
// and enum= (values separated by |). A description runs to the end of the
// tag so it may contain commas.
func parseJSONSchemaTag(tag string, schema *Schema, required *[]string, fieldName string) error {
	for tag != "" {
		var part string
		part, tag, _ = strings.Cut(tag, ",")
		part = strings.TrimSpace(part)

		switch {
		case part == "required":
			*required = append(*required, fieldName)
		case strings.HasPrefix(part, "description="):
			desc := strings.TrimPrefix(part, "description=")
			if tag != "" {
				desc += "," + tag
				tag = ""
			}
			schema.Description = desc
		case strings.HasPrefix(part, "minimum="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(part, "minimum="), 64)
			if err != nil {
				return fmt.Errorf("invalid minimum: %w", err)
			}
			schema.Minimum = &v
		case strings.HasPrefix(part, "maximum="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(part, "maximum="), 64)
			if err != nil {
				return fmt.Errorf("invalid maximum: %w", err)
			}
			schema.Maximum = &v
		case strings.HasPrefix(part, "enum="):
			for _, v := range strings.Split(strings.TrimPrefix(part, "enum="), "|") {
				schema.Enum = append(schema.Enum, v)
			}
		}
	}
	return nil
}

// MarshalJSON encodes the schema with its properties in declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type plain Schema
	p := plain(*s)
	p.Properties = nil
	data, err := json.Marshal(p)
	if err != nil || len(s.Properties) == 0 {
		return data, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"properties":{`)
	for i, name := range s.PropertyNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Properties[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	if len(data) > 2 {
		buf.WriteByte(',')
		buf.Write(data[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a schema and keeps the order in which its
// properties appear in data.
func (s *Schema) UnmarshalJSON(data []byte) error {
	type plain Schema
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Schema(p)

	var raw struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	order, err := objectKeys(raw.Properties)
	if err != nil {
		return err
	}
	s.order = order
	return nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(data json.RawMessage) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func boolPtr(b bool) *bool { return &b }
