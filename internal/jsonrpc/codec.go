package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotAMessage signals that a scanned line is framing noise (a startup
// banner, diagnostic text) rather than a structured JSON-RPC message. Callers
// scanning a stream for a reply skip such lines without failing.
var ErrNotAMessage = errors.New("jsonrpc: line is not a structured message")

// EncodeLine serializes a request or response envelope to a single line of
// text with no embedded newline. The caller appends the line terminator on
// write.
func EncodeLine(msg any) ([]byte, error) {
	line, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if bytes.ContainsRune(line, '\n') {
		return nil, fmt.Errorf("encoded message contains embedded newline")
	}
	return line, nil
}

// DecodeResponse decodes one line scanned from a peer's output. A line is a
// candidate message only if, after trimming, it begins with '{'; every other
// line yields ErrNotAMessage. A candidate that fails to parse as a valid
// response is a hard decode failure.
func DecodeResponse(line []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAMessage
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// DecodeRequest decodes one inbound line on the server side. Unlike response
// scanning, servers answer malformed lines with a parse-error response, so
// any failure here maps to ErrorCodeParseError at the call site.
func DecodeRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(bytes.TrimSpace(line), &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}
