// Package server implements the test-server command: it validates the
// requested identity against the catalog and serves the reference protocol
// over stdio.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeshaw/envdecode"

	"github.com/mcpconform/mcpconform/internal/catalog"
	"github.com/mcpconform/mcpconform/internal/logctx"
	"github.com/mcpconform/mcpconform/internal/refserver"
)

// Config holds test-server configuration. Flags override env-provided
// defaults.
type Config struct {
	ServerName    string `env:"MCPCONFORM_SERVER_NAME"`
	Transport     string `env:"MCPCONFORM_TRANSPORT"`
	ScenariosData string `env:"MCPCONFORM_SCENARIOS_DATA,default=scenarios/data.json"`
	Verbose       bool   `env:"MCPCONFORM_VERBOSE"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	_ = envdecode.Decode(&cfg)

	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "server identity (CalcServer, FileServer, ErrorServer)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport type (stdio)")
	fs.StringVar(&cfg.ScenariosData, "scenarios-data", cfg.ScenariosData, "path to the scenarios descriptor file")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ServerName == "" {
		return Config{}, errors.New("--server-name is required")
	}
	if cfg.Transport == "" {
		return Config{}, errors.New("--transport is required")
	}
	if cfg.Transport != "stdio" {
		return Config{}, fmt.Errorf("transport %q is not supported; only stdio is", cfg.Transport)
	}

	return cfg, nil
}

// Run serves the reference protocol for the configured identity, reading
// requests from in and writing responses to out until EOF. Logs go to
// errOut; the wire owns out.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(logctx.Handler{Handler: slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})})

	cat, err := catalog.Load(cfg.ScenariosData)
	if err != nil {
		return err
	}
	if _, ok := cat.Servers[cfg.ServerName]; !ok {
		return fmt.Errorf("server %q not found in scenarios data", cfg.ServerName)
	}

	log.InfoContext(ctx, "starting server", slog.String("server_name", cfg.ServerName))
	return refserver.New(cfg.ServerName, refserver.WithLogger(log)).Serve(ctx, in, out)
}
