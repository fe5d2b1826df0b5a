package envbind

import (
	"reflect"
	"sync"
)

// Provenance lists where each bound field's value came from, in binding order.
type Provenance struct {
	Fields []FieldProvenance
}

// FieldProvenance describes where a field's value came from.
type FieldProvenance struct {
	FieldPath  string `json:"field_path"`  // Go field path (e.g., "Database.Host")
	KeyPath    string `json:"key_path"`    // Dot path (e.g., "database.host")
	Key        string `json:"key"`         // Key looked up, including nested prefixes (e.g., "DB_HOST")
	SourceName string `json:"source_name"` // "env:DB_HOST", "file:.env", "default" or "zero"
	Secret     bool   `json:"secret"`      // Whether field is secret
}

var provenanceStore sync.Map

// GetProvenance returns provenance metadata for a configuration returned
// by a successful load. Thread-safe.
func GetProvenance[T any](cfg *T) (*Provenance, bool) {
	if cfg == nil {
		return nil, false
	}
	return ProvenanceOf(cfg)
}

// ProvenanceOf is the non-generic form of GetProvenance; cfg must be the
// pointer returned by the load.
func ProvenanceOf(cfg any) (*Provenance, bool) {
	if !isNonNilPointer(cfg) {
		return nil, false
	}

	value, ok := provenanceStore.Load(cfg)
	if !ok {
		return nil, false
	}

	prov, ok := value.(*Provenance)
	return prov, ok
}

// ForgetProvenance drops the provenance kept for cfg.
func ForgetProvenance(cfg any) {
	if isNonNilPointer(cfg) {
		provenanceStore.Delete(cfg)
	}
}

func storeProvenance(cfg any, prov *Provenance) {
	if isNonNilPointer(cfg) && prov != nil {
		provenanceStore.Store(cfg, prov)
	}
}

func isNonNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && !rv.IsNil()
}

// provenanceByPath indexes provenance entries by Go field path.
func provenanceByPath(cfg any) map[string]*FieldProvenance {
	byPath := make(map[string]*FieldProvenance)
	prov, ok := ProvenanceOf(cfg)
	if !ok {
		return byPath
	}
	for i := range prov.Fields {
		byPath[prov.Fields[i].FieldPath] = &prov.Fields[i]
	}
	return byPath
}
