package envbind

import (
	"reflect"
	"strings"

	"github.com/Azhovan/envbind/sourceenv"
	"github.com/Azhovan/envbind/sourcefile"
)

// Loader binds a configuration struct from an environment, after
// preloading candidate env files.
// Loads are synchronous. The environment is not locked: callers sharing a
// mutable environment across goroutines must serialize loads themselves.
type Loader[T any] struct {
	env   Environment
	paths []string
}

// NewLoader creates a Loader reading the process environment with no env files.
func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{
		env: sourceenv.Process(),
	}
}

// WithEnvironment replaces the environment fields are bound from.
func (l *Loader[T]) WithEnvironment(env Environment) *Loader[T] {
	l.env = env
	return l
}

// WithPaths appends candidate env files. They are tried in order and the
// first one that exists is preloaded.
func (l *Loader[T]) WithPaths(paths ...string) *Loader[T] {
	l.paths = append(l.paths, paths...)
	return l
}

// Load preloads env files and binds a new *T.
// Errors are *LoadError, *MissingRequiredError, *ParseError or *SchemaError;
// no partially bound value is ever returned.
func (l *Loader[T]) Load() (*T, error) {
	schema, err := SchemaOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}

	cfg, err := LoadSchema(schema, l.env, l.paths...)
	if err != nil {
		return nil, err
	}

	return cfg.Interface().(*T), nil
}

// Load binds T from the process environment after preloading path.
// A missing file is not an error.
func Load[T any](path string) (*T, error) {
	return NewLoader[T]().WithPaths(path).Load()
}

// LoadIter binds T from the process environment after preloading the first
// existing file among paths.
func LoadIter[T any](paths ...string) (*T, error) {
	return NewLoader[T]().WithPaths(paths...).Load()
}

// LoadSchema is the non-generic form of Loader.Load for schemas whose type
// is only known at runtime. It returns a pointer to a new value of schema.Type.
func LoadSchema(schema *Schema, env Environment, paths ...string) (reflect.Value, error) {
	fileKeys, err := preloadPaths(env, paths)
	if err != nil {
		return reflect.Value{}, err
	}

	return bindSchema(schema, env, fileKeys)
}

// LoadSchemaPrefixed preloads paths into env with keys stored as written,
// then binds schema with every key resolved as prefix+key. Values preloaded
// from a file keep their file provenance.
func LoadSchemaPrefixed(schema *Schema, env Environment, prefix string, paths ...string) (reflect.Value, error) {
	fileKeys, err := preloadPaths(env, paths)
	if err != nil {
		return reflect.Value{}, err
	}

	view := sourceenv.WithPrefix(env, sourceenv.Options{Prefix: prefix})
	return bindSchema(schema, view, trimKeyPrefix(env, fileKeys, prefix))
}

func bindSchema(schema *Schema, env Environment, fileKeys map[string]string) (reflect.Value, error) {
	r := &resolver{env: env, fileKeys: fileKeys}
	cfg := reflect.New(schema.Type)
	if err := r.bindStruct(schema, cfg.Elem(), "", ""); err != nil {
		return reflect.Value{}, err
	}

	storeProvenance(cfg.Interface(), &Provenance{Fields: r.fields})
	return cfg, nil
}

// trimKeyPrefix re-keys fileKeys the way a prefixed view sees them.
// The prefix matches case-insensitively, like sourceenv.WithPrefix, but a
// case variant never shadows an exact prefix+key already set in env.
func trimKeyPrefix(env Environment, fileKeys map[string]string, prefix string) map[string]string {
	if len(fileKeys) == 0 {
		return nil
	}

	keys := make(map[string]string, len(fileKeys))
	for key, name := range fileKeys {
		if len(key) <= len(prefix) || !strings.EqualFold(key[:len(prefix)], prefix) {
			continue
		}
		rel := key[len(prefix):]
		if key[:len(prefix)] != prefix {
			if _, exact := fileKeys[prefix+rel]; exact {
				continue
			}
			if _, set := env.Lookup(prefix + rel); set {
				continue
			}
		}
		keys[rel] = name
	}
	return keys
}

// Preload merges the first existing env file among paths into env without
// overriding keys env already has.
// Missing files are skipped; if none exists nothing is merged and the
// result is nil. A *LoadError is returned only when every candidate failed
// with an I/O or parse error.
func Preload(env Environment, paths ...string) error {
	_, err := preloadPaths(env, paths)
	return err
}

// preloadPaths implements Preload and reports which keys were inserted,
// mapped to their source name.
func preloadPaths(env Environment, paths []string) (map[string]string, error) {
	var lastErr error
	failures := 0

	for _, path := range paths {
		res, err := sourcefile.Preload(path, env)
		if err != nil {
			lastErr = &LoadError{Path: path, Err: err}
			failures++
			continue
		}
		if !res.Found {
			continue
		}

		keys := make(map[string]string, len(res.Applied))
		for _, key := range res.Applied {
			keys[key] = res.Name()
		}
		return keys, nil
	}

	if len(paths) > 0 && failures == len(paths) {
		return nil, lastErr
	}
	return nil, nil
}
