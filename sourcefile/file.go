package sourcefile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// ErrInvalidEncoding is returned for files that are not valid UTF-8.
var ErrInvalidEncoding = errors.New("sourcefile: file is not valid UTF-8")

// Target receives preloaded entries. envbind.Environment satisfies it.
type Target interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

// Result describes one preload.
type Result struct {
	Path    string
	Found   bool     // false when the file does not exist
	Applied []string // keys inserted into the target, sorted
	Skipped []string // keys left alone because the target already had them, sorted
}

// Name returns a human-readable identifier for the file, e.g. "file:.env".
func (r Result) Name() string {
	return Name(r.Path)
}

// Name returns the source identifier used for values preloaded from path.
func Name(path string) string {
	return "file:" + filepath.Base(path)
}

// Preload reads path and sets every entry that target does not have yet.
// A missing file returns a Result with Found == false and a nil error.
func Preload(path string, target Target) (Result, error) {
	res := Result{Path: path}

	vars, err := Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, err
	}
	res.Found = true

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, exists := target.Lookup(key); exists {
			res.Skipped = append(res.Skipped, key)
			continue
		}
		if err := target.Set(key, vars[key]); err != nil {
			return res, fmt.Errorf("set %s from %s: %w", key, path, err)
		}
		res.Applied = append(res.Applied, key)
	}

	return res, nil
}

// Read parses path into a key/value map without touching any store.
// The returned error wraps fs.ErrNotExist when the file is missing.
func Read(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("parse env file %s: %w", path, ErrInvalidEncoding)
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}

	return vars, nil
}
