// Package sourcefile preloads KEY=value files (".env" files) into a store.
//
// Entries never override keys that are already set, and a missing file is
// not an error.
//
// Values are parsed by godotenv: ${VAR} and $VAR in unquoted or double-quoted
// values expand against entries defined earlier in the same file only, never
// against the store or the process environment. Single-quoted values are
// taken literally.
//
// Example:
//
//	res, err := sourcefile.Preload(".env", sourceenv.Process())
package sourcefile
