// Package sourceenv provides key/value stores that envbind reads from.
//
// Process() is backed by the real process environment. NewMap and
// FromEnviron give isolated stores for tests or embedding, and WithPrefix
// scopes any store to keys sharing a common prefix.
//
// Example:
//
//	env := sourceenv.WithPrefix(sourceenv.Process(), sourceenv.Options{Prefix: "APP_"})
//	cfg, err := envbind.NewLoader[Config]().WithEnvironment(env).Load()
package sourceenv
