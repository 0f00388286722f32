// Package runner orchestrates scenario runs end-to-end: spawn the server
// under test, perform the initialize handshake, execute the scenario's
// request sequence, and reduce the exchange to a terminal outcome.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcpconform/mcpconform/internal/catalog"
	"github.com/mcpconform/mcpconform/internal/logctx"
	"github.com/mcpconform/mcpconform/internal/transport"
	"github.com/mcpconform/mcpconform/mcp"
)

// scenarioFunc executes one scenario's request sequence over an initialized
// connection and reduces the final response to a Result. Returned errors are
// transport-level failures; assertion mismatches travel in the Result.
type scenarioFunc func(ctx context.Context, conn *transport.Conn, sc *catalog.Scenario, clientID string) (Result, error)

// Runner executes scenarios from a catalog, one at a time.
type Runner struct {
	catalog   *catalog.Catalog
	log       *slog.Logger
	scenarios map[uint32]scenarioFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used during runs. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// New constructs a Runner over the given catalog with the built-in scenario
// registry.
func New(cat *catalog.Catalog, opts ...Option) *Runner {
	r := &Runner{
		catalog:   cat,
		log:       slog.Default(),
		scenarios: builtinScenarios(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunStdio executes one scenario against a server reached by spawning argv
// as a child process. The child is always waited on before the run ends,
// whatever the outcome.
func (r *Runner) RunStdio(ctx context.Context, scenarioID uint32, clientID string, argv []string) (Result, error) {
	sc, ok := r.catalog.Find(scenarioID)
	if !ok {
		return Result{}, fmt.Errorf("scenario %d not found", scenarioID)
	}
	if !sc.HasClient(clientID) {
		return Result{}, fmt.Errorf("client %q not found in scenario %d", clientID, scenarioID)
	}

	ctx = logctx.WithRunData(ctx, &logctx.RunData{
		RunID:      uuid.NewString(),
		ScenarioID: sc.ID,
		ClientID:   clientID,
		ServerName: sc.ServerName,
	})
	r.log.InfoContext(ctx, "executing scenario", slog.String("description", sc.Description))

	if sc.HTTPOnly {
		return Result{Outcome: OutcomeNotApplicable, Reason: "scenario requires an HTTP transport"}, nil
	}

	conn, err := transport.Spawn(ctx, argv, transport.WithLogger(r.log))
	if err != nil {
		return Result{}, err
	}

	res, runErr := r.run(ctx, conn, sc, clientID)
	if closeErr := conn.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return Result{}, runErr
	}

	r.log.InfoContext(ctx, "scenario finished", slog.String("outcome", res.Outcome.String()), slog.String("reason", res.Reason))
	return res, nil
}

// run performs the handshake and dispatches to the scenario's logic. Split
// from RunStdio so tests can drive it over in-memory pipes.
func (r *Runner) run(ctx context.Context, conn *transport.Conn, sc *catalog.Scenario, clientID string) (Result, error) {
	if err := r.handshake(ctx, conn); err != nil {
		return Result{}, err
	}

	fn, ok := r.scenarios[sc.ID]
	if !ok {
		r.log.InfoContext(ctx, "scenario not fully implemented yet")
		return Result{Outcome: OutcomeNotImplemented, Reason: fmt.Sprintf("scenario %d has no implemented logic", sc.ID)}, nil
	}
	return fn(ctx, conn, sc, clientID)
}

// handshake sends the initialize request and discards framing noise until
// the structured reply arrives.
func (r *Runner) handshake(ctx context.Context, conn *transport.Conn) error {
	resp, err := conn.Call(ctx, string(mcp.InitializeMethod), mcp.InitializeRequest{
		ProtocolVersion: mcp.LatestProtocolVersion,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      mcp.ImplementationInfo{Name: "mcpconform-client", Version: "1.0.0"},
	})
	if err != nil {
		return fmt.Errorf("initialize handshake: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize handshake: %w", resp.Error)
	}
	r.log.DebugContext(ctx, "initialize response", slog.String("result", string(resp.Result)))
	return nil
}
