// Package schemafile declares envbind schemas in YAML, TOML or JSON(C) files
// instead of Go struct tags.
//
// Format is auto-detected from extension (.yaml, .yml, .toml, .json, .jsonc).
//
//	fields:
//	  - name: db_url
//	    key: DB_URL
//	    default: "sqlite://test.db"
//	  - name: features
//	    key: FEATURES
//	    type: "[]string"
//	    default: "foo,bar"
//	  - name: app
//	    prefix: APP_
//	    fields:
//	      - name: port
//	        key: PORT
//	        type: int
//	        required: true
//
// A manifest compiles to a struct type whose fields carry the equivalent
// conf tags, so binding follows exactly the same rules as for Go structs.
package schemafile
