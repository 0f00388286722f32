//go:build integration

package refserver_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// These tests probe the reference server with the official protocol SDK
// client, confirming the hand-rolled wire handling interoperates with an
// independent implementation.

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("caller information unavailable")
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above test file")
		}
		dir = parent
	}
}

func connectSDK(t *testing.T, serverName string) *mcp.ClientSession {
	t.Helper()
	root := repoRoot(t)

	bin := filepath.Join(t.TempDir(), "test-server")
	build := exec.Command("go", "build", "-o", bin, "./cmd/test-server")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build: %v\n%s", err, out)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	cmd := exec.Command(bin, "--server-name", serverName, "--transport", "stdio")
	cmd.Dir = root

	client := mcp.NewClient(&mcp.Implementation{Name: "conformance-probe", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestSDKListTools(t *testing.T) {
	session := connectSDK(t, "CalcServer")

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	var found bool
	for _, tool := range res.Tools {
		if tool.Name == "add" {
			found = true
		}
	}
	if !found {
		t.Errorf("tool list %v missing add", res.Tools)
	}
}

func TestSDKCallAdd(t *testing.T) {
	session := connectSDK(t, "CalcServer")

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "add",
		Arguments: map[string]any{"a": 10, "b": 20},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatal("add reported a tool error")
	}
	if len(res.Content) != 1 {
		t.Fatalf("content = %v", res.Content)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want text", res.Content[0])
	}
	if text.Text != "30" {
		t.Errorf("text = %q, want 30", text.Text)
	}
}

func TestSDKAlwaysError(t *testing.T) {
	session := connectSDK(t, "ErrorServer")

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "always_error",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatal("always_error must report a tool error")
	}
}
