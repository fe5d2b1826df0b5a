package envbind

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParseScalar parses raw into T using T's canonical textual form.
// Failures are returned as *ParseError carrying key.
func ParseScalar[T any](key, raw string) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	if !isScalarType(t) {
		return zero, fmt.Errorf("envbind: %s is not a scalar type", t)
	}

	v, err := parseScalar(key, raw, t)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// ParseList splits raw on delimiter, trims each part, drops empty parts and
// parses the rest as T. An empty delimiter yields an empty list.
func ParseList[T any](key, raw, delimiter string) ([]T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if !isScalarType(t) {
		return nil, fmt.Errorf("envbind: %s is not a scalar type", t)
	}

	v, err := parseList(key, raw, delimiter, t)
	if err != nil {
		return nil, err
	}
	return v.Interface().([]T), nil
}

// parseScalar converts raw into a value of type t.
func parseScalar(key, raw string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()

	fail := func(err error) (reflect.Value, error) {
		return reflect.Value{}, &ParseError{Key: key, Value: raw, Type: t.String(), Err: err}
	}

	if t == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fail(err)
		}
		out.SetInt(int64(d))
		return out, nil
	}

	if u, ok := out.Addr().Interface().(encoding.TextUnmarshaler); ok {
		if err := u.UnmarshalText([]byte(raw)); err != nil {
			return fail(err)
		}
		return out, nil
	}

	switch t.Kind() {
	case reflect.String:
		out.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fail(err)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetFloat(f)
	default:
		return fail(fmt.Errorf("unsupported type %s", t))
	}

	return out, nil
}

// parseList builds a []elem from raw.
func parseList(key, raw, delimiter string, elem reflect.Type) (reflect.Value, error) {
	out := reflect.MakeSlice(reflect.SliceOf(elem), 0, 0)
	if delimiter == "" {
		return out, nil
	}

	for _, part := range strings.Split(raw, delimiter) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parseScalar(key, part, elem)
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, v)
	}

	return out, nil
}
