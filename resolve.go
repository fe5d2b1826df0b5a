package envbind

import (
	"reflect"
	"strings"
)

// Provenance source names for values that did not come from the environment.
const (
	SourceDefault = "default"
	SourceZero    = "zero"
)

// resolver binds one schema tree against an environment. It is created per
// load and discarded afterwards.
type resolver struct {
	env Environment

	// fileKeys maps keys inserted by the preloader during this load to the
	// file they came from, for provenance.
	fileKeys map[string]string

	fields []FieldProvenance
}

// bindStruct resolves every field of s into dst, in declaration order,
// stopping at the first error. keyPrefix is the accumulated nested prefix;
// fieldPath is the Go field path of dst.
func (r *resolver) bindStruct(s *Schema, dst reflect.Value, keyPrefix, fieldPath string) error {
	for i := range s.Fields {
		spec := &s.Fields[i]
		field := dst.Field(spec.Index)

		goPath := spec.Name
		if fieldPath != "" {
			goPath = fieldPath + "." + spec.Name
		}

		if spec.Kind == KindNested {
			// Nested errors surface unchanged so the caller sees the leaf key.
			if err := r.bindStruct(spec.Nested, field, keyPrefix+spec.Prefix, goPath); err != nil {
				return err
			}
			continue
		}

		key := keyPrefix + spec.Key
		value, source, err := r.resolve(spec, key)
		if err != nil {
			return err
		}
		field.Set(value)

		r.fields = append(r.fields, FieldProvenance{
			FieldPath:  goPath,
			KeyPath:    spec.Path,
			Key:        key,
			SourceName: source,
			Secret:     spec.Secret,
		})
	}

	return nil
}

// resolve picks the binding strategy for a scalar or list field:
// a non-blank source value wins, then the default, then the required
// check, then the zero value (an empty list for lists).
func (r *resolver) resolve(spec *FieldSpec, key string) (reflect.Value, string, error) {
	if raw, ok := r.env.Lookup(key); ok && strings.TrimSpace(raw) != "" {
		value, err := parseField(spec, key, raw)
		if err != nil {
			return reflect.Value{}, "", err
		}
		return value, r.sourceOf(key), nil
	}

	if spec.Required && !spec.HasDefault {
		return reflect.Value{}, "", &MissingRequiredError{Key: key}
	}

	if spec.HasDefault {
		value, err := parseField(spec, key, spec.Default)
		if err != nil {
			return reflect.Value{}, "", err
		}
		return value, SourceDefault, nil
	}

	if spec.Kind == KindList {
		return reflect.MakeSlice(reflect.SliceOf(spec.Type), 0, 0), SourceZero, nil
	}
	return reflect.Zero(spec.Type), SourceZero, nil
}

func (r *resolver) sourceOf(key string) string {
	if name, ok := r.fileKeys[key]; ok {
		return name
	}
	return "env:" + key
}

func parseField(spec *FieldSpec, key, raw string) (reflect.Value, error) {
	if spec.Kind == KindList {
		return parseList(key, raw, spec.Delimiter, spec.Type)
	}
	return parseScalar(key, raw, spec.Type)
}
