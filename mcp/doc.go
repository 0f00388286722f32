// Package mcp defines the wire shapes of the Model Context Protocol surface
// exercised by the conformance harness: the initialize handshake, tool
// listing, and tool invocation. It is deliberately not a full protocol
// binding; only the request and result payloads the scenarios validate are
// modeled here.
package mcp
