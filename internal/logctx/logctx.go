// Package logctx decorates slog records with harness context carried on the
// request context: the scenario run in flight and the JSON-RPC message being
// exchanged.
package logctx

import (
	"context"
	"log/slog"
)

type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(runDataKey{}).(*RunData); ok {
		r.AddAttrs(slog.Group("run",
			slog.String("id", rd.RunID),
			slog.Uint64("scenario_id", uint64(rd.ScenarioID)),
			slog.String("client_id", rd.ClientID),
			slog.String("server_name", rd.ServerName),
		))
	}

	if msg, ok := ctx.Value(rpcMsgKey{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type runDataKey struct{}

type RunData struct {
	RunID      string
	ScenarioID uint32
	ClientID   string
	ServerName string
}

func WithRunData(ctx context.Context, data *RunData) context.Context {
	return context.WithValue(ctx, runDataKey{}, data)
}

type rpcMsgKey struct{}

type RPCMessage struct {
	Method string
	ID     string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsgKey{}, msg)
}
