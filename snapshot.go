package envbind

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

// MaxSnapshotSize is the maximum allowed snapshot size (100MB).
const MaxSnapshotSize = 100 * 1024 * 1024

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = "1.0"

// Snapshot errors.
var (
	// ErrSnapshotTooLarge is returned when a snapshot exceeds MaxSnapshotSize.
	ErrSnapshotTooLarge = errors.New("envbind: snapshot exceeds 100MB size limit")

	// ErrNilConfig is returned when a nil config is dumped or snapshotted.
	ErrNilConfig = errors.New("envbind: config is nil")
)

// ConfigSnapshot is a point-in-time capture of a loaded configuration.
type ConfigSnapshot struct {
	// Version is the snapshot format version (currently "1.0")
	Version string `json:"version"`

	// Timestamp is when the snapshot was created
	Timestamp time.Time `json:"timestamp"`

	// Config contains flattened values keyed by key path, secrets redacted.
	Config map[string]any `json:"config"`

	// Provenance tracks the source of each bound field.
	Provenance []FieldProvenance `json:"provenance"`
}

// SnapshotOption configures snapshot creation behavior.
type SnapshotOption func(*snapshotConfig)

type snapshotConfig struct {
	excludeFields []string // Key paths to exclude
}

// WithExcludeFields excludes key paths from the snapshot (case-insensitive).
func WithExcludeFields(paths ...string) SnapshotOption {
	return func(cfg *snapshotConfig) {
		cfg.excludeFields = append(cfg.excludeFields, paths...)
	}
}

// CreateSnapshot captures cfg, a pointer returned by a load.
func CreateSnapshot(cfg any, opts ...SnapshotOption) (*ConfigSnapshot, error) {
	v, schema, err := configValue(cfg)
	if err != nil {
		return nil, err
	}

	snapCfg := &snapshotConfig{}
	for _, opt := range opts {
		opt(snapCfg)
	}

	timestamp := time.Now().UTC()

	var provFields []FieldProvenance
	if prov, ok := ProvenanceOf(cfg); ok {
		provFields = applyProvenanceExclusions(prov.Fields, snapCfg.excludeFields)
	}

	flat := make(map[string]any)
	flattenFields(v, schema, "", provenanceByPath(cfg), flat)

	return &ConfigSnapshot{
		Version:    SnapshotVersion,
		Timestamp:  timestamp,
		Config:     applyExclusions(flat, snapCfg.excludeFields),
		Provenance: provFields,
	}, nil
}

// flattenFields walks schema and records leaf values by key path.
func flattenFields(v reflect.Value, schema *Schema, fieldPath string, provenanceMap map[string]*FieldProvenance, result map[string]any) {
	for i := range schema.Fields {
		spec := &schema.Fields[i]
		goPath := joinFieldPath(fieldPath, spec.Name)
		fv := v.Field(spec.Index)

		if spec.Kind == KindNested {
			flattenFields(fv, spec.Nested, goPath, provenanceMap, result)
			continue
		}
		result[spec.Path] = formatValueForJSON(fv, spec, provenanceMap[goPath])
	}
}

// applyExclusions filters out excluded key paths. Matching is case-insensitive.
func applyExclusions(config map[string]any, exclude []string) map[string]any {
	if len(exclude) == 0 {
		return config
	}

	excludeSet := exclusionSet(exclude)
	result := make(map[string]any, len(config))
	for key, value := range config {
		if !excludeSet[strings.ToLower(key)] {
			result[key] = value
		}
	}
	return result
}

func applyProvenanceExclusions(fields []FieldProvenance, exclude []string) []FieldProvenance {
	if len(exclude) == 0 {
		return fields
	}

	excludeSet := exclusionSet(exclude)
	result := make([]FieldProvenance, 0, len(fields))
	for _, f := range fields {
		if !excludeSet[strings.ToLower(f.KeyPath)] {
			result = append(result, f)
		}
	}
	return result
}

func exclusionSet(exclude []string) map[string]bool {
	set := make(map[string]bool, len(exclude))
	for _, path := range exclude {
		set[strings.ToLower(path)] = true
	}
	return set
}

// ExpandPath expands template variables using current time.
func ExpandPath(template string) string {
	return ExpandPathWithTime(template, time.Now())
}

// ExpandPathWithTime replaces all {{timestamp}} occurrences with t formatted
// as 20060102-150405 (UTC).
func ExpandPathWithTime(template string, t time.Time) string {
	timestamp := t.UTC().Format("20060102-150405")
	return strings.ReplaceAll(template, "{{timestamp}}", timestamp)
}

// WriteSnapshot persists a snapshot as indented JSON with atomic write
// semantics (temp file in the target directory, then rename; mode 0600).
// {{timestamp}} in pathTemplate expands from snapshot.Timestamp.
// Returns the written path.
func WriteSnapshot(snapshot *ConfigSnapshot, pathTemplate string) (string, error) {
	if snapshot == nil {
		return "", ErrNilConfig
	}

	targetPath := ExpandPathWithTime(pathTemplate, snapshot.Timestamp)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if len(data) > MaxSnapshotSize {
		return "", ErrSnapshotTooLarge
	}

	dir := filepath.Dir(targetPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tempPath, err := generateTempFileName(targetPath)
	if err != nil {
		return "", err
	}

	var tempFileCreated bool
	defer func() {
		if tempFileCreated {
			_ = os.Remove(tempPath)
		}
	}()

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	tempFileCreated = true

	if err := os.Chmod(tempPath, 0600); err != nil {
		return "", fmt.Errorf("chmod snapshot: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	tempFileCreated = false

	return targetPath, nil
}

// generateTempFileName returns targetPath + ".tmp." + 16 random hex chars,
// in the same directory so the final rename stays on one filesystem.
func generateTempFileName(targetPath string) (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return targetPath + ".tmp." + hex.EncodeToString(randomBytes), nil
}
