package schemafile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azhovan/envbind"
	"github.com/Azhovan/envbind/sourceenv"
)

const yamlManifest = `
fields:
  - name: port
    key: PORT
    type: int
    default: "8080"
  - name: features
    key: FEATURES
    type: "[]string"
    split: ";"
    default: "a;b"
  - name: timeout
    key: TIMEOUT
    type: duration
    default: "5s"
  - name: db
    prefix: DB_
    fields:
      - name: url
        key: URL
        required: true
      - name: password
        key: PASSWORD
        secret: true
`

const tomlManifest = `
[[fields]]
name = "port"
key = "PORT"
type = "int"
default = "8080"

[[fields]]
name = "features"
key = "FEATURES"
type = "[]string"
split = ";"
default = "a;b"

[[fields]]
name = "timeout"
key = "TIMEOUT"
type = "duration"
default = "5s"

[[fields]]
name = "db"
prefix = "DB_"

  [[fields.fields]]
  name = "url"
  key = "URL"
  required = true

  [[fields.fields]]
  name = "password"
  key = "PASSWORD"
  secret = true
`

const jsoncManifest = `{
  // served by the API gateway
  "fields": [
    {"name": "port", "key": "PORT", "type": "int", "default": "8080"},
    {"name": "features", "key": "FEATURES", "type": "[]string", "split": ";", "default": "a;b"},
    {"name": "timeout", "key": "TIMEOUT", "type": "duration", "default": "5s"},
    {
      "name": "db",
      "prefix": "DB_",
      "fields": [
        {"name": "url", "key": "URL", "required": true},
        {"name": "password", "key": "PASSWORD", "secret": true}, /* trailing comma */
      ],
    },
  ],
}`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AllFormats(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"schema.yaml", yamlManifest},
		{"schema.yml", yamlManifest},
		{"schema.toml", tomlManifest},
		{"schema.json", jsoncManifest},
		{"schema.jsonc", jsoncManifest},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			m, err := Load(writeManifest(t, tt.file, tt.content))
			require.NoError(t, err)

			schema, err := m.Schema()
			require.NoError(t, err)
			require.Len(t, schema.Fields, 4)

			assert.Equal(t, envbind.KindScalar, schema.Fields[0].Kind)
			assert.Equal(t, "port", schema.Fields[0].Path)
			assert.Equal(t, envbind.KindList, schema.Fields[1].Kind)
			assert.Equal(t, ";", schema.Fields[1].Delimiter)
			assert.Equal(t, reflect.TypeOf(time.Duration(0)), schema.Fields[2].Type)

			db := schema.Fields[3]
			require.Equal(t, envbind.KindNested, db.Kind)
			assert.Equal(t, "DB_", db.Prefix)
			assert.Equal(t, "db.url", db.Nested.Fields[0].Path)
			assert.True(t, db.Nested.Fields[0].Required)
			assert.True(t, db.Nested.Fields[1].Secret)
		})
	}
}

func TestManifest_Bind(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)

	schema, err := m.Schema()
	require.NoError(t, err)

	env := sourceenv.NewMap(map[string]string{
		"PORT":   "9090",
		"DB_URL": "postgres://db/app",
	})

	v, err := envbind.LoadSchema(schema, env)
	require.NoError(t, err)

	cfg := v.Elem()
	assert.Equal(t, int64(9090), cfg.FieldByName("Port").Int())
	assert.Equal(t, []string{"a", "b"}, cfg.FieldByName("Features").Interface())
	assert.Equal(t, 5*time.Second, cfg.FieldByName("Timeout").Interface())
	assert.Equal(t, "postgres://db/app", cfg.FieldByName("Db").FieldByName("Url").String())

	prov, ok := envbind.ProvenanceOf(v.Interface())
	require.True(t, ok)
	require.Len(t, prov.Fields, 5)
	assert.Equal(t, "db.url", prov.Fields[3].KeyPath)
	assert.Equal(t, "DB_URL", prov.Fields[3].Key)
	assert.Equal(t, "env:DB_URL", prov.Fields[3].SourceName)
}

func TestManifest_BindMissingRequired(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)

	schema, err := m.Schema()
	require.NoError(t, err)

	_, err = envbind.LoadSchema(schema, sourceenv.NewMap(nil))

	var missing *envbind.MissingRequiredError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "DB_URL", missing.Key)
}

func TestManifest_SameShapeSameType(t *testing.T) {
	a, err := Parse([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)
	b, err := Parse([]byte(tomlManifest), FormatTOML)
	require.NoError(t, err)

	ta, err := a.StructType()
	require.NoError(t, err)
	tb, err := b.StructType()
	require.NoError(t, err)

	assert.Equal(t, ta, tb)
}

func TestManifest_DefaultsWithCommas(t *testing.T) {
	m := &Manifest{Fields: []Field{
		{Name: "hosts", Key: "HOSTS", Type: "[]string", Default: strPtr("a,b,c")},
		{Name: "greeting", Key: "GREETING", Default: strPtr("hello, world")},
	}}

	schema, err := m.Schema()
	require.NoError(t, err)

	v, err := envbind.LoadSchema(schema, sourceenv.NewMap(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, v.Elem().Field(0).Interface())
	assert.Equal(t, "hello, world", v.Elem().Field(1).String())
}

func TestManifest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		errMsg string
	}{
		{
			name:   "missing key",
			fields: []Field{{Name: "port", Type: "int"}},
			errMsg: "key is required",
		},
		{
			name:   "unknown type",
			fields: []Field{{Name: "port", Key: "PORT", Type: "complex128"}},
			errMsg: `unknown type "complex128"`,
		},
		{
			name:   "split on scalar",
			fields: []Field{{Name: "port", Key: "PORT", Type: "int", Split: strPtr(";")}},
			errMsg: "split applies to list types only",
		},
		{
			name:   "prefix on leaf",
			fields: []Field{{Name: "port", Key: "PORT", Prefix: "X_"}},
			errMsg: "prefix applies to nested fields only",
		},
		{
			name: "key on nested",
			fields: []Field{{Name: "db", Key: "DB", Fields: []Field{
				{Name: "url", Key: "URL"},
			}}},
			errMsg: "nested fields only accept name, prefix and fields",
		},
		{
			name:   "invalid name",
			fields: []Field{{Name: "db/url", Key: "URL"}},
			errMsg: "name is not a valid identifier",
		},
		{
			name: "duplicate names",
			fields: []Field{
				{Name: "db_url", Key: "A"},
				{Name: "db-url", Key: "B"},
			},
			errMsg: `collides with "db_url"`,
		},
		{
			name:   "default that reads as a directive",
			fields: []Field{{Name: "mode", Key: "MODE", Default: strPtr("fast,required")}},
			errMsg: `cannot contain ",required"`,
		},
		{
			name:   "key with a comma",
			fields: []Field{{Name: "port", Key: "PORT,requierd", Type: "int"}},
			errMsg: `key "PORT,requierd" cannot contain a comma`,
		},
		{
			name: "prefix with a comma",
			fields: []Field{{Name: "db", Prefix: "DB,_", Fields: []Field{
				{Name: "url", Key: "URL"},
			}}},
			errMsg: `prefix "DB,_" cannot contain a comma`,
		},
		{
			name: "error inside nested field",
			fields: []Field{{Name: "db", Fields: []Field{
				{Name: "port", Key: "PORT", Type: "[]nope"},
			}}},
			errMsg: `field "db.port"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{Fields: tt.fields}
			_, err := m.Schema()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("fields: [\n"), FormatYAML)
	assert.ErrorContains(t, err, "parse YAML schema")

	_, err = Parse([]byte("[[fields]\n"), FormatTOML)
	assert.ErrorContains(t, err, "parse TOML schema")

	_, err = Parse([]byte(`{"fields": 1}`), FormatJSON)
	assert.ErrorContains(t, err, "parse JSON schema")

	_, err = Parse([]byte(""), Format("ini"))
	assert.ErrorContains(t, err, "unsupported schema format: ini")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeManifest(t, "schema.ini", "fields = []"))
	assert.ErrorContains(t, err, "cannot infer schema format")

	path := writeManifest(t, "bad.toml", "fields = 1")
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}

func TestInferFormat(t *testing.T) {
	tests := map[string]Format{
		"a.yaml":      FormatYAML,
		"a.YML":       FormatYAML,
		"dir/a.toml":  FormatTOML,
		"a.json":      FormatJSON,
		"a.jsonc":     FormatJSON,
		"/etc/x.JSON": FormatJSON,
	}

	for path, want := range tests {
		got, err := InferFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := InferFormat("schema")
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }
