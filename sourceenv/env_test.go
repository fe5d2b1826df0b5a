package sourceenv

import (
	"testing"
)

func TestMap_LookupAndSet(t *testing.T) {
	m := NewMap(map[string]string{"HOST": "localhost", "EMPTY": ""})

	if v, ok := m.Lookup("HOST"); !ok || v != "localhost" {
		t.Errorf("Lookup(HOST) = %q, %v, want %q, true", v, ok, "localhost")
	}
	if v, ok := m.Lookup("EMPTY"); !ok || v != "" {
		t.Errorf("Lookup(EMPTY) = %q, %v, want empty, true", v, ok)
	}
	if _, ok := m.Lookup("MISSING"); ok {
		t.Error("Lookup(MISSING) reported a value")
	}

	if err := m.Set("PORT", "8080"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := m.Lookup("PORT"); v != "8080" {
		t.Errorf("Lookup(PORT) = %q, want %q", v, "8080")
	}
}

func TestNewMap_CopiesInput(t *testing.T) {
	vars := map[string]string{"A": "1"}
	m := NewMap(vars)
	vars["A"] = "2"

	if v, _ := m.Lookup("A"); v != "1" {
		t.Errorf("Lookup(A) = %q, want %q (store must not alias the input map)", v, "1")
	}
}

func TestFromEnviron(t *testing.T) {
	m := FromEnviron([]string{
		"HOST=localhost",
		"URL=postgres://u:p@h/db?sslmode=disable",
		"EMPTY=",
		"MALFORMED",
		"=novalue",
	})

	tests := []struct {
		key   string
		want  string
		found bool
	}{
		{"HOST", "localhost", true},
		{"URL", "postgres://u:p@h/db?sslmode=disable", true},
		{"EMPTY", "", true},
		{"MALFORMED", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := m.Lookup(tt.key)
		if ok != tt.found || got != tt.want {
			t.Errorf("Lookup(%q) = %q, %v, want %q, %v", tt.key, got, ok, tt.want, tt.found)
		}
	}

	keys := m.Keys()
	want := []string{"EMPTY", "HOST", "URL"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestProcess_LookupAndSet(t *testing.T) {
	t.Setenv("ENVBIND_SOURCEENV_TEST", "from-process")

	env := Process()
	if v, ok := env.Lookup("ENVBIND_SOURCEENV_TEST"); !ok || v != "from-process" {
		t.Errorf("Lookup() = %q, %v, want %q, true", v, ok, "from-process")
	}

	if err := env.Set("ENVBIND_SOURCEENV_TEST", "updated"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := env.Lookup("ENVBIND_SOURCEENV_TEST"); v != "updated" {
		t.Errorf("Lookup() after Set = %q, want %q", v, "updated")
	}

	found := false
	for _, k := range env.Keys() {
		if k == "ENVBIND_SOURCEENV_TEST" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Keys() does not list ENVBIND_SOURCEENV_TEST")
	}
}

func TestPrefixed_Lookup(t *testing.T) {
	base := NewMap(map[string]string{
		"APP_HOST":     "localhost",
		"app_PORT":     "8080",
		"App_NAME":     "myapp",
		"OTHER_VAR":    "ignored",
		"APP_DB__HOST": "db.local",
	})

	tests := []struct {
		name  string
		opts  Options
		key   string
		want  string
		found bool
	}{
		{"exact prefix", Options{Prefix: "APP_"}, "HOST", "localhost", true},
		{"nested key", Options{Prefix: "APP_"}, "DB__HOST", "db.local", true},
		{"case insensitive prefix", Options{Prefix: "APP_"}, "PORT", "8080", true},
		{"lowercase prefix option", Options{Prefix: "app_"}, "NAME", "myapp", true},
		{"case sensitive rejects other case", Options{Prefix: "APP_", CaseSensitive: true}, "PORT", "", false},
		{"key case is preserved", Options{Prefix: "APP_"}, "host", "", false},
		{"outside prefix", Options{Prefix: "APP_"}, "VAR", "", false},
		{"empty prefix", Options{}, "OTHER_VAR", "ignored", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := WithPrefix(base, tt.opts)
			got, ok := env.Lookup(tt.key)
			if ok != tt.found || got != tt.want {
				t.Errorf("Lookup(%q) = %q, %v, want %q, %v", tt.key, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestPrefixed_SetAndKeys(t *testing.T) {
	base := NewMap(map[string]string{"APP_HOST": "h", "app_port": "1", "OTHER": "x"})
	env := WithPrefix(base, Options{Prefix: "APP_"})

	if err := env.Set("NAME", "svc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok := base.Lookup("APP_NAME"); !ok || v != "svc" {
		t.Errorf("base APP_NAME = %q, %v, want %q, true", v, ok, "svc")
	}

	keys := env.Keys()
	want := []string{"HOST", "NAME", "port"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

type lookupOnly struct{ vars map[string]string }

func (l lookupOnly) Lookup(key string) (string, bool) {
	v, ok := l.vars[key]
	return v, ok
}

func (l lookupOnly) Set(key, value string) error {
	l.vars[key] = value
	return nil
}

func TestPrefixed_WithoutLister(t *testing.T) {
	env := WithPrefix(lookupOnly{vars: map[string]string{"app_PORT": "1"}}, Options{Prefix: "APP_"})

	if _, ok := env.Lookup("PORT"); ok {
		t.Error("Lookup() matched a differently-cased prefix on a store that cannot list keys")
	}
	if keys := env.Keys(); keys != nil {
		t.Errorf("Keys() = %v, want nil", keys)
	}
}
