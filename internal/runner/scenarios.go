package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcpconform/mcpconform/internal/catalog"
	"github.com/mcpconform/mcpconform/internal/transport"
	"github.com/mcpconform/mcpconform/mcp"
)

// builtinScenarios is the registry of implemented scenario logic, keyed by
// catalog scenario id. Ids absent from the map report OutcomeNotImplemented.
func builtinScenarios() map[uint32]scenarioFunc {
	return map[uint32]scenarioFunc{
		1: scenarioAdditiveTool,
	}
}

// scenarioAdditiveTool covers scenario 1: call the calculator's add tool
// with fixed operands and assert the returned text content is their sum.
func scenarioAdditiveTool(ctx context.Context, conn *transport.Conn, _ *catalog.Scenario, _ string) (Result, error) {
	args, err := json.Marshal(map[string]float64{"a": 10, "b": 20})
	if err != nil {
		return Result{}, err
	}

	resp, err := conn.Call(ctx, string(mcp.ToolsCallMethod), mcp.CallToolParams{Name: "add", Arguments: args})
	if err != nil {
		return Result{}, fmt.Errorf("tools/call add: %w", err)
	}

	return assertTextContent(resp.Result, resp.Error, "30"), nil
}

// assertTextContent applies the structural checks in nested order: result,
// then content, then a first entry, then its text field. The first missing
// piece determines the failure message; only then is the text compared.
func assertTextContent(result json.RawMessage, rpcErr error, want string) Result {
	if len(result) == 0 {
		if rpcErr != nil {
			return failedf("no result in response: %v", rpcErr)
		}
		return failedf("no result in response")
	}

	var decoded map[string]any
	if err := json.Unmarshal(result, &decoded); err != nil {
		return failedf("result is not an object: %v", err)
	}

	content, ok := decoded["content"].([]any)
	if !ok {
		return failedf("no content field in result")
	}
	if len(content) == 0 {
		return failedf("no content in response")
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		return failedf("no text field in content")
	}
	text, ok := first["text"].(string)
	if !ok {
		return failedf("no text field in content")
	}

	if text != want {
		return failedf("expected %s, got %s", want, text)
	}
	return passed()
}
