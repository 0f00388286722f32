// Package transport owns the byte pipe between the harness and a protocol
// server process. It frames outgoing requests as single newline-terminated
// lines and scans incoming lines until one parses as a structured message,
// discarding startup banners and other framing noise along the way.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/mcpconform/mcpconform/internal/jsonrpc"
	"github.com/mcpconform/mcpconform/internal/logctx"
)

// maxLineBytes bounds a single inbound frame.
const maxLineBytes = 1 << 20

// Conn is a single-owner duplex line connection. Requests are sent and their
// responses consumed strictly in send order; there is never more than one
// outstanding request.
type Conn struct {
	log     *slog.Logger
	w       io.Writer
	scanner *bufio.Scanner
	cmd     *exec.Cmd
	stdin   io.Closer
	nextID  int64
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for exchange tracing. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Conn) {
		if log != nil {
			c.log = log
		}
	}
}

// NewConn wraps an existing duplex pair. Used by tests to attach to
// in-memory pipes without spawning a process.
func NewConn(r io.Reader, w io.Writer, opts ...Option) *Conn {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	c := &Conn{
		log:     slog.Default(),
		w:       w,
		scanner: scanner,
		nextID:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spawn starts argv[0] with the remaining arguments, wiring its stdin and
// stdout as the connection's pipe pair. Stderr is inherited so the child's
// diagnostics stay visible without polluting the wire. The child is bound to
// ctx: cancellation kills it, which is the harness's only escape from a hung
// subprocess.
func Spawn(ctx context.Context, argv []string, opts ...Option) (*Conn, error) {
	if len(argv) == 0 {
		return nil, errors.New("no server command provided")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn server process: %w", err)
	}

	c := NewConn(stdout, stdin, opts...)
	c.cmd = cmd
	c.stdin = stdin
	return c, nil
}

// Call sends one request and blocks until its response is decoded. Lines
// that are not structured messages are skipped. The response's id must echo
// the request's id; a mismatch is a framing failure, not an assertion
// failure. There is no read deadline: a subprocess that never answers stalls
// the call until the context kills it.
func (c *Conn) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	id := jsonrpc.NewRequestID(c.nextID)
	c.nextID++

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	if err := c.writeFrame(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.readResponse(ctx, method)
	if err != nil {
		return nil, err
	}
	if !resp.ID.Equal(id) {
		return nil, fmt.Errorf("response id %s does not match request id %s", resp.ID.String(), id.String())
	}
	return resp, nil
}

// Notify sends a fire-and-forget request; no response is read.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	req, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.writeFrame(ctx, req)
}

func (c *Conn) writeFrame(ctx context.Context, req *jsonrpc.Request) error {
	line, err := jsonrpc.EncodeLine(req)
	if err != nil {
		return err
	}
	rctx := logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String()})
	c.log.DebugContext(rctx, "sending request")
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// readResponse scans lines until one decodes as a structured response.
// Non-message lines are logged and discarded without error; there is no
// upper bound on how many are skipped.
func (c *Conn) readResponse(ctx context.Context, method string) (*jsonrpc.Response, error) {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		resp, err := jsonrpc.DecodeResponse(line)
		if errors.Is(err, jsonrpc.ErrNotAMessage) {
			c.log.DebugContext(ctx, "skipping non-message line", slog.String("line", string(line)))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("exchange for %s: %w", method, err)
		}
		return resp, nil
	}
	if err := c.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read from server: %w", err)
	}
	return nil, fmt.Errorf("server closed its output before answering %s", method)
}

// Close releases the connection. For spawned servers it closes the child's
// stdin and waits for the process to exit, guaranteeing the child is reaped
// regardless of the run's outcome.
func (c *Conn) Close() error {
	var errs []error
	if c.stdin != nil {
		if err := c.stdin.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.cmd != nil {
		if err := c.cmd.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("server process: %w", err))
		}
	}
	return errors.Join(errs...)
}
