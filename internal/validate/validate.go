// Package validate checks RPC parameters against JSON schemas before they are
// decoded into typed structs.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidParams is wrapped by every schema failure
var ErrInvalidParams = errors.New("invalid params")

// Error lists the schema violations of one params document
type Error struct {
	Method     string
	Violations []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, strings.Join(e.Violations, "; "))
}

// Unwrap lets callers match ErrInvalidParams
func (e *Error) Unwrap() error { return ErrInvalidParams }

// Validator holds the compiled method schemas
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every method schema
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(schemas))}
	for method, raw := range schemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for %s: %w", method, err)
		}
		v.schemas[method] = schema
	}
	return v, nil
}

// Methods returns the method names that carry a schema, sorted
func (v *Validator) Methods() []string {
	out := make([]string, 0, len(v.schemas))
	for m := range v.schemas {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Validate checks params for method. Methods without a schema always pass.
// Absent params are validated as an empty object.
func (v *Validator) Validate(method string, params json.RawMessage) error {
	schema, ok := v.schemas[method]
	if !ok {
		return nil
	}
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage(`{}`)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(params))
	if err != nil {
		return &Error{Method: method, Violations: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &Error{Method: method, Violations: violations}
}

// Decode unmarshals params into dest. Absent params leave dest untouched.
func Decode(params json.RawMessage, dest interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
