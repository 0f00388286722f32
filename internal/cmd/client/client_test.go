package client

import (
	"bytes"
	"context"
	"flag"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func parseArgs(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test-client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return ParseConfig(fs, args)
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name: "valid",
			args: []string{"--scenario-id", "1", "--id", "client1", "stdio", "test-server", "--server-name", "CalcServer"},
		},
		{
			name:    "missing scenario id",
			args:    []string{"--id", "client1", "stdio", "srv"},
			wantErr: "--scenario-id is required",
		},
		{
			name:    "scenario id beyond 32 bits",
			args:    []string{"--scenario-id", "4294967297", "--id", "client1", "stdio", "srv"},
			wantErr: "--scenario-id 4294967297 is out of range",
		},
		{
			name:    "missing client id",
			args:    []string{"--scenario-id", "1", "stdio", "srv"},
			wantErr: "--id is required",
		},
		{
			name:    "missing subcommand",
			args:    []string{"--scenario-id", "1", "--id", "client1"},
			wantErr: "a transport subcommand is required",
		},
		{
			name:    "unsupported transport",
			args:    []string{"--scenario-id", "1", "--id", "client1", "http", "srv"},
			wantErr: `transport "http" is not supported`,
		},
		{
			name:    "stdio without server command",
			args:    []string{"--scenario-id", "1", "--id", "client1", "stdio"},
			wantErr: "no server command provided",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := parseArgs(t, tc.args...)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want substring %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			if cfg.ScenarioID != 1 || cfg.ClientID != "client1" {
				t.Errorf("cfg = %+v", cfg)
			}
			if len(cfg.ServerCommand) != 3 || cfg.ServerCommand[0] != "test-server" {
				t.Errorf("server command = %v", cfg.ServerCommand)
			}
			if cfg.ScenariosData != "scenarios/data.json" {
				t.Errorf("scenarios data = %q, want default", cfg.ScenariosData)
			}
		})
	}
}

func TestParseConfigEnvDefaults(t *testing.T) {
	t.Setenv("MCPCONFORM_SCENARIO_ID", "4")
	t.Setenv("MCPCONFORM_CLIENT_ID", "client2")
	t.Setenv("MCPCONFORM_SCENARIOS_DATA", "/etc/mcpconform/data.json")

	cfg, err := parseArgs(t, "stdio", "srv")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ScenarioID != 4 || cfg.ClientID != "client2" {
		t.Errorf("cfg = %+v, want env-provided scenario and client", cfg)
	}
	if cfg.ScenariosData != "/etc/mcpconform/data.json" {
		t.Errorf("scenarios data = %q", cfg.ScenariosData)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("MCPCONFORM_SCENARIO_ID", "4")
	t.Setenv("MCPCONFORM_CLIENT_ID", "client2")

	cfg, err := parseArgs(t, "--scenario-id", "1", "--id", "client1", "stdio", "srv")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ScenarioID != 1 || cfg.ClientID != "client1" {
		t.Errorf("cfg = %+v, want flag values to win", cfg)
	}
}

func TestRunNotApplicableScenario(t *testing.T) {
	cfg := Config{
		ScenarioID:    7,
		ClientID:      "client1",
		ScenariosData: filepath.Join("..", "..", "..", "scenarios", "data.json"),
	}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, io.Discard); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "scenario 7 not applicable") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunMissingCatalog(t *testing.T) {
	cfg := Config{
		ScenarioID:    1,
		ClientID:      "client1",
		ScenariosData: filepath.Join(t.TempDir(), "absent.json"),
	}

	err := Run(context.Background(), cfg, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "failed to read scenarios file") {
		t.Fatalf("error = %v", err)
	}
}
