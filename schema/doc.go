// Package schema describes and checks capability parameters.
//
// Tool inputs are plain Go structs; Generate turns them into a JSON Schema
// whose properties keep the struct's field order:
//
//	type ReadInput struct {
//	    DocID string `json:"doc_id" jsonschema:"required,description=Id of the document to read"`
//	}
//
//	s, err := schema.Generate(ReadInput{})
//	s.Params() // [{doc_id string true "Id of the document to read"}]
//
// Prompt arguments are declared directly with Object.
//
// # Tags
//
// The jsonschema tag accepts required, minimum=N, maximum=N, enum=a|b and
// description=text. The description runs to the end of the tag, so it may
// contain commas and must come last.
//
// # Validation
//
// Schemas generated from structs, and those built with Object, are closed:
// Validate reports a missing required property, a property the schema does
// not declare, and a value of the wrong type. All problems are collected
// into ValidationErrors rather than stopping at the first.
package schema
