package schemafile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Azhovan/envbind"
	"github.com/Azhovan/envbind/internal/normalize"
)

// Format identifies a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Manifest is a declarative schema.
type Manifest struct {
	Fields []Field `yaml:"fields" toml:"fields" json:"fields"`
}

// Field declares one field. A field with nested Fields is a nested schema
// and must not set Key, Type, Default, Required, Split or Secret.
type Field struct {
	Name     string  `yaml:"name" toml:"name" json:"name"`
	Key      string  `yaml:"key,omitempty" toml:"key,omitempty" json:"key,omitempty"`
	Type     string  `yaml:"type,omitempty" toml:"type,omitempty" json:"type,omitempty"` // default "string"; "[]T" for lists
	Default  *string `yaml:"default,omitempty" toml:"default,omitempty" json:"default,omitempty"`
	Required bool    `yaml:"required,omitempty" toml:"required,omitempty" json:"required,omitempty"`
	Split    *string `yaml:"split,omitempty" toml:"split,omitempty" json:"split,omitempty"`
	Secret   bool    `yaml:"secret,omitempty" toml:"secret,omitempty" json:"secret,omitempty"`
	Prefix   string  `yaml:"prefix,omitempty" toml:"prefix,omitempty" json:"prefix,omitempty"`
	Fields   []Field `yaml:"fields,omitempty" toml:"fields,omitempty" json:"fields,omitempty"`
}

var scalarTypes = map[string]reflect.Type{
	"string":   reflect.TypeOf(""),
	"bool":     reflect.TypeOf(false),
	"int":      reflect.TypeOf(int(0)),
	"int8":     reflect.TypeOf(int8(0)),
	"int16":    reflect.TypeOf(int16(0)),
	"int32":    reflect.TypeOf(int32(0)),
	"int64":    reflect.TypeOf(int64(0)),
	"uint":     reflect.TypeOf(uint(0)),
	"uint8":    reflect.TypeOf(uint8(0)),
	"uint16":   reflect.TypeOf(uint16(0)),
	"uint32":   reflect.TypeOf(uint32(0)),
	"uint64":   reflect.TypeOf(uint64(0)),
	"float32":  reflect.TypeOf(float32(0)),
	"float64":  reflect.TypeOf(float64(0)),
	"duration": reflect.TypeOf(time.Duration(0)),
}

// tagDirectives mirror the directive names that end a default or split value.
var tagDirectives = []string{"env:", "name:", "prefix:", "default:", "split:", "required", "secret"}

// Load reads and parses a manifest file, inferring the format from its extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}

	format, err := InferFormat(path)
	if err != nil {
		return nil, err
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest in the given format.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse YAML schema: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse TOML schema: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, fmt.Errorf("parse JSON schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported schema format: %s (supported: yaml, toml, json)", format)
	}
	return &m, nil
}

// InferFormat maps a file extension to a Format.
func InferFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot infer schema format from extension %q (supported: .yaml, .yml, .toml, .json, .jsonc)", ext)
	}
}

// StructType compiles the manifest into a struct type carrying conf tags.
func (m *Manifest) StructType() (reflect.Type, error) {
	return buildStruct(m.Fields, "")
}

// Schema compiles the manifest and derives its envbind schema.
func (m *Manifest) Schema() (*envbind.Schema, error) {
	t, err := m.StructType()
	if err != nil {
		return nil, err
	}
	return envbind.SchemaOf(t)
}

func buildStruct(fields []Field, parentPath string) (reflect.Type, error) {
	structFields := make([]reflect.StructField, 0, len(fields))
	seen := make(map[string]string, len(fields))

	for _, f := range fields {
		path := normalize.ApplyPrefix(parentPath, f.Name)

		goName := normalize.ExportedName(f.Name)
		if goName == "" {
			return nil, fmt.Errorf("field %q: name is not a valid identifier", path)
		}
		if other, dup := seen[goName]; dup {
			return nil, fmt.Errorf("field %q: collides with %q", path, other)
		}
		seen[goName] = path

		var (
			fieldType  reflect.Type
			directives []string
			err        error
		)
		if len(f.Fields) > 0 {
			fieldType, directives, err = nestedField(f, path)
		} else {
			fieldType, directives, err = leafField(f, path)
		}
		if err != nil {
			return nil, err
		}

		structFields = append(structFields, reflect.StructField{
			Name: goName,
			Type: fieldType,
			Tag:  reflect.StructTag("conf:" + strconv.Quote(strings.Join(directives, ","))),
		})
	}

	return reflect.StructOf(structFields), nil
}

func nestedField(f Field, path string) (reflect.Type, []string, error) {
	if f.Key != "" || f.Type != "" || f.Default != nil || f.Required || f.Split != nil || f.Secret {
		return nil, nil, fmt.Errorf("field %q: nested fields only accept name, prefix and fields", path)
	}
	t, err := buildStruct(f.Fields, path)
	if err != nil {
		return nil, nil, err
	}

	directives := []string{"name:" + path}
	if f.Prefix != "" {
		if strings.Contains(f.Prefix, ",") {
			return nil, nil, fmt.Errorf("field %q: prefix %q cannot contain a comma", path, f.Prefix)
		}
		directives = append(directives, "prefix:"+f.Prefix)
	}
	return t, directives, nil
}

func leafField(f Field, path string) (reflect.Type, []string, error) {
	if f.Key == "" {
		return nil, nil, fmt.Errorf("field %q: key is required", path)
	}
	if strings.Contains(f.Key, ",") {
		return nil, nil, fmt.Errorf("field %q: key %q cannot contain a comma", path, f.Key)
	}
	if f.Prefix != "" {
		return nil, nil, fmt.Errorf("field %q: prefix applies to nested fields only", path)
	}

	t, err := resolveType(f.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("field %q: %w", path, err)
	}
	if f.Split != nil && t.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("field %q: split applies to list types only", path)
	}

	directives := []string{"env:" + f.Key, "name:" + path}
	if f.Required {
		directives = append(directives, "required")
	}
	if f.Secret {
		directives = append(directives, "secret")
	}
	if f.Split != nil {
		if err := checkValue(path, "split", *f.Split); err != nil {
			return nil, nil, err
		}
		directives = append(directives, "split:"+*f.Split)
	}
	if f.Default != nil {
		if err := checkValue(path, "default", *f.Default); err != nil {
			return nil, nil, err
		}
		directives = append(directives, "default:"+*f.Default)
	}
	return t, directives, nil
}

func resolveType(name string) (reflect.Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "string"
	}

	list := strings.HasPrefix(name, "[]")
	elem, ok := scalarTypes[strings.TrimPrefix(name, "[]")]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	if list {
		return reflect.SliceOf(elem), nil
	}
	return elem, nil
}

// checkValue rejects values that would be cut short when the tag is parsed.
func checkValue(path, directive, value string) error {
	for i := 0; i < len(value); i++ {
		if value[i] != ',' {
			continue
		}
		rest := strings.TrimSpace(value[i+1:])
		for _, d := range tagDirectives {
			if strings.HasPrefix(rest, d) {
				return fmt.Errorf("field %q: %s value %q cannot contain \",%s\"", path, directive, value, d)
			}
		}
	}
	return nil
}
