package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/lua"
	"github.com/aretw0/tendril/pkg/adapters/process"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
)

// Files picked up automatically when they sit next to the schema.
const (
	DefaultRulesFile      = "rules.lua"
	DefaultValidatorsFile = "validators.yaml"
)

// CreateEngine initializes a tendril engine with standard CLI conventions.
func CreateEngine(opts Options, logger *slog.Logger, extra ...tendril.Option) (*tendril.Engine, error) {
	engineOpts := []tendril.Option{tendril.WithLogger(logger)}
	if opts.Debug {
		engineOpts = append(engineOpts, tendril.WithLifecycleHooks(createDebugHooks(logger)))
	}

	if path := findBeside(opts.SchemaPath, DefaultValidatorsFile); path != "" {
		catalog, err := loadValidators(path, logger)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, tendril.WithCatalog(catalog))
	}

	rules := opts.RulesPath
	if rules == "" {
		rules = findBeside(opts.SchemaPath, DefaultRulesFile)
	}
	if rules != "" {
		v, err := loadRules(rules, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("Cross-validation rules loaded", "path", rules)
		engineOpts = append(engineOpts, tendril.WithRuntimeOptions(runtime.WithCrossValidator(v.Validate)))
	}

	engine, err := tendril.New(opts.SchemaPath, append(engineOpts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// findBeside returns the named companion file of a schema, or "" when there
// is none. A directory holds it inside; a file holds it alongside.
func findBeside(schemaPath, name string) string {
	if schemaPath == "" {
		return ""
	}
	dir := schemaPath
	if info, err := os.Stat(schemaPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(schemaPath)
	}
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func loadRules(path string, logger *slog.Logger) (*lua.Validator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	v, err := lua.Compile(filepath.Base(path), string(src), lua.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	return v, nil
}

// loadValidators registers the external commands of a validators file as
// async validators, runnable from schema files as `async: [name]`.
func loadValidators(path string, logger *slog.Logger) (*schema.Catalog, error) {
	validators, err := process.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	r := process.NewRunner(
		process.WithRegistry(validators),
		process.WithBaseDir(filepath.Dir(path)),
		process.WithLogger(logger),
	)
	catalog := schema.NewCatalog()
	r.RegisterAll(catalog)
	logger.Debug("External validators loaded", "path", path, "names", r.Names())
	return catalog, nil
}
