package sourceenv

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// Store is the minimal contract of a source environment. It matches
// envbind.Environment.
type Store interface {
	// Lookup returns the value of key and whether it is set.
	Lookup(key string) (string, bool)

	// Set assigns value to key.
	Set(key, value string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys() []string
}

// ProcessEnv reads and writes the process environment.
type ProcessEnv struct{}

// Process returns a store backed by os.LookupEnv and os.Setenv.
func Process() ProcessEnv {
	return ProcessEnv{}
}

// Lookup reports the process value of key.
func (ProcessEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Set calls os.Setenv.
func (ProcessEnv) Set(key, value string) error {
	return os.Setenv(key, value)
}

// Keys lists the variable names currently set in the process environment.
func (ProcessEnv) Keys() []string {
	return environKeys(os.Environ())
}

// Map is an isolated in-memory store. The zero value is not usable; use NewMap.
type Map struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMap creates a store holding a copy of vars.
func NewMap(vars map[string]string) *Map {
	m := &Map{vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		m.vars[k] = v
	}
	return m
}

// FromEnviron builds a Map from "KEY=value" entries such as os.Environ().
// Entries without "=" or with an empty key are skipped.
func FromEnviron(environ []string) *Map {
	m := &Map{vars: make(map[string]string, len(environ))}
	for _, entry := range environ {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		m.vars[parts[0]] = parts[1]
	}
	return m
}

// Lookup returns the stored value of key.
func (m *Map) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[key]
	return v, ok
}

// Set stores value under key.
func (m *Map) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[key] = value
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.vars))
	for k := range m.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Options configures a prefixed view.
type Options struct {
	// Prefix is prepended to every key before it reaches the base store.
	Prefix string

	// CaseSensitive controls prefix matching (default: false).
	// When false and the base store can list its keys, a key whose prefix
	// differs only in case (app_PORT for APP_ + PORT) is still found.
	CaseSensitive bool
}

// Prefixed scopes a base store to keys starting with a prefix.
type Prefixed struct {
	base Store
	opts Options
}

// WithPrefix returns a view over base where key K resolves to Prefix+K.
func WithPrefix(base Store, opts Options) *Prefixed {
	return &Prefixed{base: base, opts: opts}
}

// Lookup resolves Prefix+key in the base store.
func (p *Prefixed) Lookup(key string) (string, bool) {
	if v, ok := p.base.Lookup(p.opts.Prefix + key); ok {
		return v, true
	}
	if p.opts.CaseSensitive || p.opts.Prefix == "" {
		return "", false
	}

	lister, ok := p.base.(Lister)
	if !ok {
		return "", false
	}
	for _, candidate := range lister.Keys() {
		if len(candidate) != len(p.opts.Prefix)+len(key) {
			continue
		}
		if !strings.EqualFold(candidate[:len(p.opts.Prefix)], p.opts.Prefix) {
			continue
		}
		if candidate[len(p.opts.Prefix):] == key {
			return p.base.Lookup(candidate)
		}
	}
	return "", false
}

// Set writes Prefix+key into the base store.
func (p *Prefixed) Set(key, value string) error {
	return p.base.Set(p.opts.Prefix+key, value)
}

// Keys lists base keys that carry the prefix, with the prefix stripped.
func (p *Prefixed) Keys() []string {
	lister, ok := p.base.(Lister)
	if !ok {
		return nil
	}

	var keys []string
	for _, k := range lister.Keys() {
		if len(k) <= len(p.opts.Prefix) {
			continue
		}
		head := k[:len(p.opts.Prefix)]
		if p.opts.CaseSensitive {
			if head != p.opts.Prefix {
				continue
			}
		} else if !strings.EqualFold(head, p.opts.Prefix) {
			continue
		}
		keys = append(keys, k[len(p.opts.Prefix):])
	}
	sort.Strings(keys)
	return keys
}

func environKeys(environ []string) []string {
	keys := make([]string, 0, len(environ))
	for _, entry := range environ {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		keys = append(keys, parts[0])
	}
	sort.Strings(keys)
	return keys
}
