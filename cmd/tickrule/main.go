// Command tickrule is the authoring companion for trading-rule
// documents: validate rule packs, strategies and single expressions,
// evaluate an expression one-shot against JSON snapshot files, and dump
// the variable/function catalog for editor tooling.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rendis/tickrule/internal/engine"
	"github.com/rendis/tickrule/internal/logging"
	"github.com/rendis/tickrule/internal/scope"
	"github.com/rendis/tickrule/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := loadConfig()
	setupLogger(cfg.LogLevel)

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(cfg, os.Args[2:])
	case "eval":
		err = runEval(cfg, os.Args[2:])
	case "catalog":
		err = runCatalog(cfg, os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: tickrule <command> [flags]

commands:
  validate   validate a rule pack, strategy document or single expression
  eval       evaluate one expression against JSON snapshot files
  catalog    print the variable and function catalog
  version    print the version

run "tickrule <command> -h" for command flags
`)
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(logging.NewCorrelationHandler(inner)))
}

func newEngine(cfg Config) (*engine.Engine, error) {
	opts := engine.Options{
		CacheSize:   cfg.CacheSize,
		MaxDepth:    cfg.MaxDepth,
		MaxNodes:    cfg.MaxNodes,
		MaxArrayLen: cfg.MaxArrayLen,
	}
	if cfg.JournalPath != "" {
		journal, err := store.NewLibSQLJournal(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		opts.Journal = journal
	}
	return engine.NewEngine(opts)
}

func runValidate(cfg Config, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	packPath := fs.String("pack", "", "rule pack JSON file")
	strategyPath := fs.String("strategy", "", "strategy JSON file")
	exprText := fs.String("expr", "", "single expression to validate")
	lang := fs.String("lang", "", "expression language (expr, cel)")
	fs.Parse(args)

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	switch {
	case *packPath != "":
		raw, err := os.ReadFile(*packPath)
		if err != nil {
			return err
		}
		_, result := eng.Validator().ValidateRulePack(raw)
		return printResult(result)
	case *strategyPath != "":
		raw, err := os.ReadFile(*strategyPath)
		if err != nil {
			return err
		}
		_, result := eng.Validator().ValidateStrategy(raw)
		return printResult(result)
	case *exprText != "":
		result := eng.Validator().ValidateExpression(*lang, *exprText)
		return printResult(result)
	}
	return fmt.Errorf("validate: one of -pack, -strategy or -expr is required")
}

func printResult(result any) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	type valid interface{ Valid() bool }
	if v, ok := result.(valid); ok && !v.Valid() {
		os.Exit(1)
	}
	return nil
}

// snapshotFlags collects the per-source JSON file paths shared by eval
// and catalog.
type snapshotFlags struct {
	chart      string
	bot        string
	indicators string
	regime     string
	project    string
	derived    string
}

func (s *snapshotFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.chart, "chart", "", "chart snapshot JSON file")
	fs.StringVar(&s.bot, "bot", "", "bot snapshot JSON file")
	fs.StringVar(&s.indicators, "indicators", "", "indicator snapshot JSON file")
	fs.StringVar(&s.regime, "regime", "", "regime snapshot JSON file")
	fs.StringVar(&s.project, "project", "", "project variables JSON file")
	fs.StringVar(&s.derived, "derived", "", "derived variables JSON file (name -> jq path)")
}

func (s *snapshotFlags) load() (scope.Snapshots, error) {
	var snap scope.Snapshots
	var err error

	if snap.Chart, err = loadObject(s.chart); err != nil {
		return snap, err
	}
	if snap.Bot, err = loadObject(s.bot); err != nil {
		return snap, err
	}
	if snap.Indicators, err = loadObject(s.indicators); err != nil {
		return snap, err
	}
	if snap.Regime, err = loadObject(s.regime); err != nil {
		return snap, err
	}
	if s.project != "" {
		if snap.Project, err = scope.LoadProjectVars(s.project); err != nil {
			return snap, err
		}
	}
	if s.derived != "" {
		raw, err := os.ReadFile(s.derived)
		if err != nil {
			return snap, err
		}
		if err := json.Unmarshal(raw, &snap.Derived); err != nil {
			return snap, fmt.Errorf("parse derived variables: %w", err)
		}
	}
	return snap, nil
}

func loadObject(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func runEval(cfg Config, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	exprText := fs.String("expr", "", "expression to evaluate")
	lang := fs.String("lang", "", "expression language (expr, cel)")
	var snaps snapshotFlags
	snaps.register(fs)
	fs.Parse(args)

	if *exprText == "" {
		return fmt.Errorf("eval: -expr is required")
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	snap, err := snaps.load()
	if err != nil {
		return err
	}

	result := eng.EvaluateWithSources(context.Background(), *lang, *exprText, snap)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runCatalog(cfg Config, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	var snaps snapshotFlags
	snaps.register(fs)
	fs.Parse(args)

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	snap, err := snaps.load()
	if err != nil {
		return err
	}
	ec, err := eng.Builder().Build(snap)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"variables": eng.Catalog(ec),
		"functions": eng.Functions(),
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
