// Package envbind binds environment variables to typed configuration structs.
//
// Quick Start:
//
//	type Config struct {
//	    DBURL    string   `conf:"env:DB_URL,default:sqlite://test.db"`
//	    AppName  string   `conf:"env:APP_NAME,required"`
//	    Features []string `conf:"env:FEATURES,default:foo,bar,split:,"`
//	    Cache    struct {
//	        TTL time.Duration `conf:"env:TTL,default:30s"`
//	    } `conf:"prefix:CACHE_"`
//	}
//
//	cfg, err := envbind.LoadIter[Config](".env.local", ".env")
//
// Tag directives: env:KEY, default:val, required, split:sep, secret,
// name:path (dump/provenance key path), prefix:P (nested structs).
//
// For each field: a non-blank value under KEY is parsed; otherwise the
// default is parsed; otherwise a required field fails with
// *MissingRequiredError; otherwise the zero value (or an empty list) is bound.
// Env files only fill keys that are not set yet.
package envbind
