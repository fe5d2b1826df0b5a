package envbind

import (
	"strings"
)

// tagConfig holds parsed directives from a struct field's `conf` tag.
type tagConfig struct {
	skip       bool   // conf:"-"
	env        string // Source key (env:VAR_NAME)
	name       string // Custom key path for dump/provenance (name:custom.path)
	prefix     string // Key prefix for nested structs (prefix:DB_)
	defValue   string // Default value (default:value)
	split      string // List delimiter (split:;)
	required   bool   // Field is required (required or required:true)
	secret     bool   // Field is secret (secret or secret:true)
	hasDefault bool   // Whether a default directive was present
	hasSplit   bool   // Whether a split directive was present
}

// directiveNames are the directive prefixes recognized after a comma.
var directiveNames = []string{"env:", "name:", "prefix:", "default:", "split:", "required", "secret"}

// valueDirectives may carry commas in their value.
var valueDirectives = []string{"default:", "split:"}

// parseTag parses a `conf` struct tag into a structured tagConfig.
// Tag format: "directive1:value1,directive2:value2,..."
// Boolean directives can omit `:true` (e.g., "required" == "required:true").
// Only default and split values may contain commas; there a comma ends the
// directive when the text after it starts with a known directive name.
// Unknown directives are ignored.
func parseTag(tag string) tagConfig {
	cfg := tagConfig{}

	if tag == "" {
		return cfg
	}
	if strings.TrimSpace(tag) == "-" {
		cfg.skip = true
		return cfg
	}

	for _, directive := range splitDirectives(tag) {
		if strings.TrimSpace(directive) == "" {
			continue
		}

		parts := strings.SplitN(directive, ":", 2)
		name := strings.TrimSpace(parts[0])
		var value string
		if len(parts) > 1 {
			value = parts[1] // Don't trim value - whitespace may be intentional
		}

		switch name {
		case "env":
			cfg.env = strings.TrimSpace(value)
		case "name":
			cfg.name = strings.TrimSpace(value)
		case "prefix":
			cfg.prefix = value
		case "default":
			cfg.defValue = value
			cfg.hasDefault = true
		case "split":
			cfg.split = value
			cfg.hasSplit = true
		case "required":
			cfg.required = parseBoolDirective(value)
		case "secret":
			cfg.secret = parseBoolDirective(value)
		}
	}

	return cfg
}

// parseBoolDirective: no value or explicit "true" means true, "false" means
// false, anything else is treated as true.
func parseBoolDirective(value string) bool {
	return strings.TrimSpace(value) != "false"
}

// splitDirectives splits a tag string into individual directives.
// Inside a default or split value a comma is a separator only when a known
// directive name follows it, so "default:a,b,split:;" yields
// ["default:a,b", "split:;"]. Everywhere else every comma separates:
// "env:PORT,requierd" yields ["env:PORT", "requierd"].
func splitDirectives(tag string) []string {
	var directives []string
	var current strings.Builder

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		if ch == ',' && (!absorbsCommas(current.String()) || startsWithDirective(tag[i+1:])) {
			directives = append(directives, current.String())
			current.Reset()
			continue
		}
		current.WriteByte(ch)
	}

	if current.Len() > 0 {
		directives = append(directives, current.String())
	}

	return directives
}

// startsWithDirective checks if a string starts with a known directive name.
func startsWithDirective(s string) bool {
	s = strings.TrimSpace(s)
	for _, d := range directiveNames {
		if strings.HasPrefix(s, d) {
			return true
		}
	}
	return false
}

// absorbsCommas reports whether directive is a default or split value that
// keeps a following comma.
func absorbsCommas(directive string) bool {
	directive = strings.TrimSpace(directive)
	for _, d := range valueDirectives {
		if strings.HasPrefix(directive, d) {
			return true
		}
	}
	return false
}
