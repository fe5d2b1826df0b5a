package envbind

import (
	"fmt"
)

// MissingRequiredError reports a required field without default whose key
// is absent or blank.
type MissingRequiredError struct {
	Key string
}

func (e *MissingRequiredError) Error() string {
	return fmt.Sprintf("envbind: missing required env: %s", e.Key)
}

// ParseError reports a raw value (from the environment or from a declared
// default) that could not be converted to the field's type.
type ParseError struct {
	Key   string // Key the value was bound for
	Value string // Raw value that failed to parse
	Type  string // Target type, for diagnostics only (e.g. "int", "time.Duration")
	Err   error  // Underlying conversion failure
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("envbind: failed to parse env %s value `%s` into %s: %v", e.Key, e.Value, e.Type, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadError reports an env file that exists but could not be preloaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("envbind: failed to load env: %v", e.Err)
	}
	return fmt.Sprintf("envbind: failed to load env file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SchemaError reports a struct declaration that cannot be turned into a schema.
type SchemaError struct {
	Type   string // Struct type being described
	Field  string // Offending field, empty for type-level problems
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("envbind: invalid schema %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("envbind: invalid schema %s: field %s: %s", e.Type, e.Field, e.Reason)
}
