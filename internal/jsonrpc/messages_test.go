package jsonrpc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	req, err := NewRequest(NewRequestID(7), "tools/call", map[string]any{"name": "add", "arguments": map[string]float64{"a": 1, "b": 2}})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	line, err := EncodeLine(req)
	if err != nil {
		t.Fatalf("EncodeLine: %v", err)
	}
	if strings.ContainsRune(string(line), '\n') {
		t.Fatalf("encoded line contains newline: %q", line)
	}

	var got Request
	if err := json.Unmarshal(line, &got); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if got.JSONRPCVersion != ProtocolVersion {
		t.Errorf("version = %q, want %q", got.JSONRPCVersion, ProtocolVersion)
	}
	if got.Method != req.Method {
		t.Errorf("method = %q, want %q", got.Method, req.Method)
	}
	if !got.ID.Equal(req.ID) {
		t.Errorf("id = %s, want %s", got.ID.String(), req.ID.String())
	}

	var wantParams, gotParams map[string]any
	if err := json.Unmarshal(req.Params, &wantParams); err != nil {
		t.Fatalf("unmarshal original params: %v", err)
	}
	if err := json.Unmarshal(got.Params, &gotParams); err != nil {
		t.Fatalf("unmarshal decoded params: %v", err)
	}
	if gotParams["name"] != wantParams["name"] {
		t.Errorf("params name = %v, want %v", gotParams["name"], wantParams["name"])
	}
}

func TestNotificationOmitsID(t *testing.T) {
	req, err := NewNotification("notifications/initialized", nil)
	if err != nil {
		t.Fatalf("NewNotification: %v", err)
	}
	line, err := EncodeLine(req)
	if err != nil {
		t.Fatalf("EncodeLine: %v", err)
	}
	if strings.Contains(string(line), `"id"`) {
		t.Errorf("notification should omit id, got %s", line)
	}
}

func TestErrorResponseNullID(t *testing.T) {
	resp := NewErrorResponse(nil, ErrorCodeParseError, "Parse error", nil)
	line, err := EncodeLine(resp)
	if err != nil {
		t.Fatalf("EncodeLine: %v", err)
	}
	if !strings.Contains(string(line), `"id":null`) {
		t.Errorf("parse-error response must carry a null id, got %s", line)
	}
}

func TestDecodeResponseValidation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{
			name: "result only",
			line: `{"jsonrpc":"2.0","id":1,"result":{}}`,
		},
		{
			name: "error only",
			line: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`,
		},
		{
			name:    "both result and error",
			line:    `{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":-32603,"message":"boom"}}`,
			wantErr: "cannot have both",
		},
		{
			name:    "neither result nor error",
			line:    `{"jsonrpc":"2.0","id":1}`,
			wantErr: "must have either",
		},
		{
			name:    "wrong version",
			line:    `{"jsonrpc":"1.0","id":1,"result":{}}`,
			wantErr: "invalid JSON-RPC version",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tc.line))
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("DecodeResponse: %v", err)
				}
				hasResult := len(resp.Result) > 0
				hasError := resp.Error != nil
				if hasResult == hasError {
					t.Errorf("decoded response must carry exactly one of result/error")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestDecodeResponseSkipsNoise(t *testing.T) {
	for _, line := range []string{"", "   ", "starting server...", "[info] listening", "} stray brace"} {
		if _, err := DecodeResponse([]byte(line)); !errors.Is(err, ErrNotAMessage) {
			t.Errorf("DecodeResponse(%q) = %v, want ErrNotAMessage", line, err)
		}
	}
}

func TestDecodeResponseMalformedCandidate(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"jsonrpc":"2.0","id":1,`))
	if err == nil || errors.Is(err, ErrNotAMessage) {
		t.Fatalf("malformed candidate must be a hard failure, got %v", err)
	}
}

func TestDecodeRequestMalformed(t *testing.T) {
	if _, err := DecodeRequest([]byte("not json at all")); err == nil {
		t.Fatal("expected decode failure for malformed request line")
	}
}
