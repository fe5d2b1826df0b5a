package envbind

import (
	"encoding"
	"reflect"
	"sync"
	"time"

	"github.com/Azhovan/envbind/internal/normalize"
)

var schemaCache sync.Map // reflect.Type -> *Schema

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// SchemaOf derives the schema of a struct type from its `conf` tags.
// Pointer types are dereferenced. Schemas are built once per type and cached.
//
// Field rules:
//   - env:KEY on a scalar or slice-of-scalar field binds it from KEY.
//   - An untagged struct field (that is not itself a scalar type) is nested.
//   - Untagged non-struct fields, unexported fields and conf:"-" are ignored.
func SchemaOf(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, &SchemaError{Type: "<nil>", Reason: "type is nil"}
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &SchemaError{Type: t.String(), Reason: "not a struct"}
	}

	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*Schema), nil
	}

	s, err := buildSchema(t, "")
	if err != nil {
		return nil, err
	}

	actual, _ := schemaCache.LoadOrStore(t, s)
	return actual.(*Schema), nil
}

// MustSchemaOf is like SchemaOf but panics on invalid declarations.
func MustSchemaOf(t reflect.Type) *Schema {
	s, err := SchemaOf(t)
	if err != nil {
		panic(err)
	}
	return s
}

func buildSchema(t reflect.Type, parentPath string) (*Schema, error) {
	s := &Schema{Type: t}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := parseTag(field.Tag.Get("conf"))
		if tag.skip {
			continue
		}

		path := tag.name
		if path == "" {
			path = normalize.ApplyPrefix(parentPath, normalize.DeriveFieldPath(field.Name))
		}

		spec := FieldSpec{
			Name:  field.Name,
			Path:  path,
			Index: i,
		}

		fail := func(reason string) error {
			return &SchemaError{Type: t.String(), Field: field.Name, Reason: reason}
		}

		switch {
		case tag.env != "":
			if tag.prefix != "" {
				return nil, fail("prefix applies to nested structs only")
			}
			spec.Key = tag.env
			spec.Default = tag.defValue
			spec.HasDefault = tag.hasDefault
			spec.Required = tag.required
			spec.Secret = tag.secret

			switch {
			case isScalarType(field.Type):
				if tag.hasSplit {
					return nil, fail("split applies to list fields only")
				}
				spec.Kind = KindScalar
				spec.Type = field.Type
			case field.Type.Kind() == reflect.Slice && isScalarType(field.Type.Elem()):
				spec.Kind = KindList
				spec.Type = field.Type.Elem()
				spec.Delimiter = DefaultDelimiter
				if tag.hasSplit {
					spec.Delimiter = tag.split
				}
			default:
				return nil, fail("unsupported type " + field.Type.String())
			}

		case field.Type.Kind() == reflect.Struct && !isScalarType(field.Type):
			if tag.hasDefault || tag.required || tag.hasSplit || tag.secret {
				return nil, fail("nested struct cannot declare default, required, split or secret")
			}
			nested, err := buildSchema(field.Type, path)
			if err != nil {
				return nil, err
			}
			spec.Kind = KindNested
			spec.Prefix = tag.prefix
			spec.Nested = nested

		default:
			if tag.hasDefault || tag.required || tag.hasSplit || tag.prefix != "" {
				return nil, fail("missing env directive")
			}
			continue
		}

		s.Fields = append(s.Fields, spec)
	}

	return s, nil
}

// isScalarType reports whether values of t can be parsed from a single string.
func isScalarType(t reflect.Type) bool {
	if t == durationType {
		return true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
