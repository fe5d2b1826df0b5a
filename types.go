package envbind

import (
	"reflect"
)

// Environment is the key/value store fields are bound from.
// Lookup must not fail: an unset key is reported with ok == false.
// Set is only used by the file preloader, and only for absent keys.
type Environment interface {
	Lookup(key string) (value string, ok bool)
	Set(key, value string) error
}

// FieldKind selects the binding strategy of a field.
type FieldKind int

const (
	// KindScalar binds one parsed value.
	KindScalar FieldKind = iota
	// KindList binds a delimiter-separated sequence of parsed values.
	KindList
	// KindNested binds a nested schema; the field itself reads no key.
	KindNested
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindNested:
		return "nested"
	default:
		return "unknown"
	}
}

// DefaultDelimiter separates list elements when a field declares no split directive.
const DefaultDelimiter = ","

// FieldSpec is the normalized binding rule of one field.
type FieldSpec struct {
	Name string // Go field name
	Path string // Dot-separated key path used by dump and provenance (e.g. "app.features")
	Kind FieldKind

	// Key, Default, HasDefault, Required, Delimiter and Secret are
	// ignored for KindNested.
	Key        string
	Default    string
	HasDefault bool
	Required   bool
	Delimiter  string
	Secret     bool

	// Prefix is prepended to every key looked up inside a nested schema.
	Prefix string

	// Type is the scalar type (KindScalar) or the element type (KindList).
	Type reflect.Type

	// Index locates the field in its parent struct (reflect.Value.Field).
	Index int

	// Nested is the schema of a KindNested field.
	Nested *Schema
}

// Schema is the ordered set of field bindings for one struct type.
// Fields appear in declaration order; the first failing field is reported.
type Schema struct {
	Type   reflect.Type
	Fields []FieldSpec
}
