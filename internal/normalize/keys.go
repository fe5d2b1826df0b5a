package normalize

import (
	"strings"
	"unicode"
)

// DeriveFieldPath derives a key path segment from a struct field name.
// It lowercases the first letter of the field name.
// Examples:
//   - "Host" → "host"
//   - "DBURL" → "dBURL"
func DeriveFieldPath(fieldName string) string {
	if fieldName == "" {
		return ""
	}

	runes := []rune(fieldName)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// ApplyPrefix joins a parent path and a segment with a dot.
// Examples:
//   - ApplyPrefix("database", "host") → "database.host"
//   - ApplyPrefix("", "host") → "host"
func ApplyPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// ExportedName converts a declared field name into an exported Go identifier.
// Underscores, dashes, dots and spaces separate words.
// Returns "" when no identifier can be formed.
// Examples:
//   - "db_url" → "DbUrl"
//   - "app-name" → "AppName"
//   - "Port" → "Port"
//   - "2fa" → "X2fa"
func ExportedName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			upper = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if b.Len() == 0 && unicode.IsDigit(r) {
				b.WriteRune('X')
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			return ""
		}
	}
	return b.String()
}
