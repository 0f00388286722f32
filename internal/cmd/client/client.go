// Package client implements the test-client command: it resolves a scenario
// from the catalog and drives it against a server process spawned from the
// stdio subcommand's launch command.
package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/joeshaw/envdecode"

	"github.com/mcpconform/mcpconform/internal/catalog"
	"github.com/mcpconform/mcpconform/internal/logctx"
	"github.com/mcpconform/mcpconform/internal/runner"
)

// Config holds test-client configuration. Flags override env-provided
// defaults.
type Config struct {
	ScenarioID    uint   `env:"MCPCONFORM_SCENARIO_ID"`
	ClientID      string `env:"MCPCONFORM_CLIENT_ID"`
	ScenariosData string `env:"MCPCONFORM_SCENARIOS_DATA,default=scenarios/data.json"`
	Verbose       bool   `env:"MCPCONFORM_VERBOSE"`

	// ServerCommand is the server launch command carried by the stdio
	// subcommand: argv[0] plus arguments.
	ServerCommand []string
}

// ParseConfig parses flags and the stdio subcommand into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	_ = envdecode.Decode(&cfg)

	fs.UintVar(&cfg.ScenarioID, "scenario-id", cfg.ScenarioID, "scenario ID to execute")
	fs.StringVar(&cfg.ClientID, "id", cfg.ClientID, "client identifier (e.g., client1)")
	fs.StringVar(&cfg.ScenariosData, "scenarios-data", cfg.ScenariosData, "path to the scenarios descriptor file")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ScenarioID == 0 {
		return Config{}, errors.New("--scenario-id is required")
	}
	if uint64(cfg.ScenarioID) > math.MaxUint32 {
		return Config{}, fmt.Errorf("--scenario-id %d is out of range", cfg.ScenarioID)
	}
	if cfg.ClientID == "" {
		return Config{}, errors.New("--id is required")
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, errors.New("a transport subcommand is required")
	}
	if rest[0] != "stdio" {
		return Config{}, fmt.Errorf("transport %q is not supported; only stdio is", rest[0])
	}
	if len(rest) < 2 {
		return Config{}, errors.New("no server command provided")
	}
	cfg.ServerCommand = rest[1:]

	return cfg, nil
}

// Run executes the configured scenario and reports its outcome on out.
// Assertion failures return an error so the process exits non-zero; the
// informational outcomes (not implemented, not applicable) do not.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	log := newLogger(errOut, cfg.Verbose)

	cat, err := catalog.Load(cfg.ScenariosData)
	if err != nil {
		return err
	}

	res, err := runner.New(cat, runner.WithLogger(log)).RunStdio(ctx, uint32(cfg.ScenarioID), cfg.ClientID, cfg.ServerCommand)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case runner.OutcomePassed:
		fmt.Fprintf(out, "scenario %d passed\n", cfg.ScenarioID)
		return nil
	case runner.OutcomeNotImplemented:
		fmt.Fprintf(out, "scenario %d not implemented\n", cfg.ScenarioID)
		return nil
	case runner.OutcomeNotApplicable:
		fmt.Fprintf(out, "scenario %d not applicable: %s\n", cfg.ScenarioID, res.Reason)
		return nil
	default:
		return fmt.Errorf("scenario %d failed: %s", cfg.ScenarioID, res.Reason)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(logctx.Handler{Handler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})})
}
