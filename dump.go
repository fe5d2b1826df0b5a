package envbind

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"
)

// redacted replaces secret values in dumps and snapshots.
const redacted = "***redacted***"

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

// dumpConfig holds options for DumpEffective.
type dumpConfig struct {
	withSources bool   // Include source attribution for each field
	asJSON      bool   // Output as JSON instead of text format
	indent      string // Indentation for JSON output (default: "  ")
}

// WithSources includes source attribution for each field in the output.
func WithSources() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withSources = true
	}
}

// AsJSON outputs configuration as JSON instead of text format.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.asJSON = true
	}
}

// WithIndent sets the indentation for JSON output.
// Default is two spaces ("  "); an empty string produces compact JSON.
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// DumpEffective writes the bound fields of cfg, a pointer to a loaded
// configuration struct, in schema order.
// Secret fields are redacted as "***redacted***".
func DumpEffective(w io.Writer, cfg any, opts ...DumpOption) error {
	v, schema, err := configValue(cfg)
	if err != nil {
		return err
	}

	config := dumpConfig{
		indent: "  ",
	}
	for _, opt := range opts {
		opt(&config)
	}

	provenanceMap := provenanceByPath(cfg)

	if config.asJSON {
		return dumpAsJSON(w, v, schema, provenanceMap, config)
	}
	return dumpAsText(w, v, schema, provenanceMap, config)
}

// configValue validates cfg and returns the struct value with its schema.
func configValue(cfg any) (reflect.Value, *Schema, error) {
	if !isNonNilPointer(cfg) {
		return reflect.Value{}, nil, ErrNilConfig
	}

	v := reflect.ValueOf(cfg).Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("envbind: config must be a pointer to struct, got %T", cfg)
	}

	schema, err := SchemaOf(v.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return v, schema, nil
}

// dumpAsText outputs configuration in text format (key: value).
func dumpAsText(w io.Writer, v reflect.Value, schema *Schema, provenanceMap map[string]*FieldProvenance, config dumpConfig) error {
	var fields []fieldData
	collectFields(v, schema, "", provenanceMap, &fields)

	for _, field := range fields {
		line := fmt.Sprintf("%s: %s", field.keyPath, field.displayValue)
		if config.withSources && field.sourceName != "" {
			line += fmt.Sprintf(" (source: %s)", field.sourceName)
		}
		line += "\n"

		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}

	return nil
}

// dumpAsJSON outputs configuration as nested JSON with secret redaction.
func dumpAsJSON(w io.Writer, v reflect.Value, schema *Schema, provenanceMap map[string]*FieldProvenance, config dumpConfig) error {
	result := buildJSONStructure(v, schema, "", "", provenanceMap, config.withSources)

	var data []byte
	var err error
	if config.indent != "" {
		data, err = json.MarshalIndent(result, "", config.indent)
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	return nil
}

// fieldData holds information about a single field for dumping.
type fieldData struct {
	keyPath      string // Dot-separated key path (e.g., "database.host")
	displayValue string // Value to display (redacted if secret)
	sourceName   string // Source attribution
}

func collectFields(v reflect.Value, schema *Schema, fieldPath string, provenanceMap map[string]*FieldProvenance, out *[]fieldData) {
	for i := range schema.Fields {
		spec := &schema.Fields[i]
		goPath := joinFieldPath(fieldPath, spec.Name)
		fv := v.Field(spec.Index)

		if spec.Kind == KindNested {
			collectFields(fv, spec.Nested, goPath, provenanceMap, out)
			continue
		}

		prov := provenanceMap[goPath]
		*out = append(*out, fieldData{
			keyPath:      spec.Path,
			displayValue: formatValue(fv, spec, prov),
			sourceName:   getSourceName(prov),
		})
	}
}

// buildJSONStructure nests values by schema; with sources, each leaf
// becomes {"value": ..., "source": ...}.
func buildJSONStructure(v reflect.Value, schema *Schema, parentKeyPath, fieldPath string, provenanceMap map[string]*FieldProvenance, withSources bool) map[string]any {
	result := make(map[string]any, len(schema.Fields))

	for i := range schema.Fields {
		spec := &schema.Fields[i]
		goPath := joinFieldPath(fieldPath, spec.Name)
		key := relativeKey(parentKeyPath, spec.Path)
		fv := v.Field(spec.Index)

		if spec.Kind == KindNested {
			result[key] = buildJSONStructure(fv, spec.Nested, spec.Path, goPath, provenanceMap, withSources)
			continue
		}

		prov := provenanceMap[goPath]
		value := formatValueForJSON(fv, spec, prov)
		if withSources {
			result[key] = map[string]any{"value": value, "source": getSourceName(prov)}
			continue
		}
		result[key] = value
	}

	return result
}

// relativeKey strips the parent key path from path when present.
func relativeKey(parent, path string) string {
	if parent != "" && strings.HasPrefix(path, parent+".") {
		return path[len(parent)+1:]
	}
	return path
}

func joinFieldPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func isSecret(spec *FieldSpec, prov *FieldProvenance) bool {
	return spec.Secret || (prov != nil && prov.Secret)
}

// formatValue formats a field value as a string, redacting secrets.
func formatValue(v reflect.Value, spec *FieldSpec, prov *FieldProvenance) string {
	if isSecret(spec, prov) {
		return redacted
	}
	return formatValueAsString(v)
}

// formatValueForJSON formats a field value for JSON output, redacting secrets.
func formatValueForJSON(v reflect.Value, spec *FieldSpec, prov *FieldProvenance) any {
	if isSecret(spec, prov) {
		return redacted
	}

	if !v.IsValid() {
		return nil
	}

	if v.Kind() == reflect.Slice && !isTextType(v.Type()) {
		slice := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			slice[i] = scalarForJSON(v.Index(i))
		}
		return slice
	}
	return scalarForJSON(v)
}

func scalarForJSON(v reflect.Value) any {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}
	if s, ok := textValue(v); ok {
		return s
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	default:
		return v.Interface()
	}
}

// formatValueAsString formats a field value as a string for text output.
func formatValueAsString(v reflect.Value) string {
	if !v.IsValid() {
		return "<nil>"
	}

	if v.Kind() == reflect.Slice && !isTextType(v.Type()) {
		parts := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if elem.Kind() == reflect.String && !isTextType(elem.Type()) {
				parts[i] = elem.String()
				continue
			}
			parts[i] = scalarAsString(elem)
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	}
	return scalarAsString(v)
}

func scalarAsString(v reflect.Value) string {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}
	if s, ok := textValue(v); ok {
		return s
	}

	switch v.Kind() {
	case reflect.String:
		return fmt.Sprintf("%q", v.String())
	case reflect.Bool:
		return fmt.Sprintf("%t", v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%g", v.Float())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// textValue renders values of types that marshal themselves as text
// (time.Time, net.IP, ...).
func textValue(v reflect.Value) (string, bool) {
	if !isTextType(v.Type()) {
		return "", false
	}
	text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return "", false
	}
	return string(text), true
}

func isTextType(t reflect.Type) bool {
	return t.Implements(textMarshalerType)
}

// getSourceName extracts the source name from provenance, or returns empty string.
func getSourceName(prov *FieldProvenance) string {
	if prov == nil {
		return ""
	}
	return prov.SourceName
}
