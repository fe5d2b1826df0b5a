// envbind checks, prints and snapshots environment configuration described
// by a schema manifest (YAML, TOML or JSON).
//
//	envbind --schema schema.yaml --env-file .env.local --env-file .env check
//	envbind --schema schema.toml dump --json --sources
//	envbind --schema schema.yaml snapshot --out snapshots/config-{{timestamp}}.json
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/Azhovan/envbind"
	"github.com/Azhovan/envbind/internal/logging"
	"github.com/Azhovan/envbind/schemafile"
	"github.com/Azhovan/envbind/sourceenv"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, sourceenv.Process()))
}

func run(args []string, stdout, stderr io.Writer, env envbind.Environment) int {
	app := kingpin.New("envbind", "Bind environment configuration against a schema manifest")
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)

	schemaPath := app.Flag("schema", "Path to the schema manifest (.yaml, .toml, .json, .jsonc)").Envar("ENVBIND_SCHEMA").Required().String()
	envFiles := app.Flag("env-file", "Candidate env file; repeat to try several, the first existing one is preloaded").Envar("ENVBIND_ENV_FILE").Default(".env").Strings()
	prefix := app.Flag("prefix", "Prefix prepended to every key").Envar("ENVBIND_PREFIX").String()
	logLevel := app.Flag("log-level", "Log level").Envar("ENVBIND_LOG_LEVEL").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag("log-format", "Log encoding").Envar("ENVBIND_LOG_FORMAT").Default("console").Enum("console", "json")

	checkCmd := app.Command("check", "Bind the schema and report the first failure")

	dumpCmd := app.Command("dump", "Print the effective configuration")
	dumpJSON := dumpCmd.Flag("json", "Print JSON instead of text").Bool()
	dumpSources := dumpCmd.Flag("sources", "Include where each value came from").Bool()

	snapshotCmd := app.Command("snapshot", "Write a configuration snapshot file")
	snapshotOut := snapshotCmd.Flag("out", "Snapshot path; {{timestamp}} is expanded").Required().String()
	snapshotExclude := snapshotCmd.Flag("exclude", "Key path to leave out of the snapshot").Strings()

	// kingpin terminates after printing usage. Keep control in run instead,
	// print usage at most once and map the outcome to an exit code.
	var helpRequested, usageShown bool
	app.HelpFlag.IsSetByUser(&helpRequested)
	app.Terminate(func(int) {
		usageShown = true
		app.UsageWriter(io.Discard)
	})

	command, err := app.Parse(args)
	switch {
	case helpRequested, usageShown && !errors.Is(err, kingpin.ErrCommandNotSpecified):
		// --help or the help command.
		return exitOK
	case err != nil:
		fmt.Fprintf(stderr, "envbind: %v\n", err)
		return exitUsage
	case command == "":
		fmt.Fprintf(stderr, "envbind: %v\n", kingpin.ErrCommandNotSpecified)
		return exitUsage
	}

	logger, err := logging.New(stderr, logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(stderr, "envbind: %v\n", err)
		return exitUsage
	}
	defer func() {
		_ = logger.Sync()
	}()

	manifest, err := schemafile.Load(*schemaPath)
	if err != nil {
		logger.Error("failed to read schema", zap.String("path", *schemaPath), zap.Error(err))
		return exitFailure
	}
	schema, err := manifest.Schema()
	if err != nil {
		logger.Error("invalid schema", zap.String("path", *schemaPath), zap.Error(err))
		return exitFailure
	}

	cfg, err := bind(schema, env, *prefix, *envFiles)
	if err != nil {
		logBindError(logger, err)
		return exitFailure
	}
	logger.Debug("configuration bound", zap.Int("fields", len(schema.Fields)), zap.Strings("env_files", *envFiles))

	switch command {
	case checkCmd.FullCommand():
		fmt.Fprintln(stdout, "ok")

	case dumpCmd.FullCommand():
		var opts []envbind.DumpOption
		if *dumpJSON {
			opts = append(opts, envbind.AsJSON())
		}
		if *dumpSources {
			opts = append(opts, envbind.WithSources())
		}
		if err := envbind.DumpEffective(stdout, cfg, opts...); err != nil {
			logger.Error("failed to dump configuration", zap.Error(err))
			return exitFailure
		}

	case snapshotCmd.FullCommand():
		snapshot, err := envbind.CreateSnapshot(cfg, envbind.WithExcludeFields(*snapshotExclude...))
		if err != nil {
			logger.Error("failed to create snapshot", zap.Error(err))
			return exitFailure
		}
		path, err := envbind.WriteSnapshot(snapshot, *snapshotOut)
		if err != nil {
			logger.Error("failed to write snapshot", zap.String("path", *snapshotOut), zap.Error(err))
			return exitFailure
		}
		logger.Info("snapshot written", zap.String("path", path))
		fmt.Fprintln(stdout, path)
	}

	return exitOK
}

// bind loads schema from env. With a prefix, env files are preloaded into
// the unprefixed environment so their keys are stored as written.
func bind(schema *envbind.Schema, env envbind.Environment, prefix string, envFiles []string) (any, error) {
	var (
		cfg reflect.Value
		err error
	)
	if prefix == "" {
		cfg, err = envbind.LoadSchema(schema, env, envFiles...)
	} else {
		cfg, err = envbind.LoadSchemaPrefixed(schema, env, prefix, envFiles...)
	}
	if err != nil {
		return nil, err
	}
	return cfg.Interface(), nil
}

func logBindError(logger *zap.Logger, err error) {
	var (
		missing  *envbind.MissingRequiredError
		parseErr *envbind.ParseError
		loadErr  *envbind.LoadError
	)

	switch {
	case errors.As(err, &missing):
		logger.Error("required value is missing", zap.String("key", missing.Key))
	case errors.As(err, &parseErr):
		logger.Error("value cannot be parsed",
			zap.String("key", parseErr.Key),
			zap.String("value", parseErr.Value),
			zap.String("type", parseErr.Type),
			zap.Error(parseErr.Err))
	case errors.As(err, &loadErr):
		logger.Error("env file cannot be loaded", zap.String("path", loadErr.Path), zap.Error(loadErr.Err))
	default:
		logger.Error("binding failed", zap.Error(err))
	}
}
