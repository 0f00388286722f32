package refserver

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/mcpconform/mcpconform/mcp"
)

// Known server identities.
const (
	ServerCalc  = "CalcServer"
	ServerFile  = "FileServer"
	ServerError = "ErrorServer"
)

// toolKey identifies a tool behavior by (server identity, tool name). New
// servers and tools are additive entries in the tables below, not structural
// edits to the dispatch path.
type toolKey struct {
	server string
	tool   string
}

// toolFunc executes one tool invocation. Tool-level failures are expressed as
// results with IsError=true, never as protocol errors.
type toolFunc func(args json.RawMessage) *mcp.CallToolResult

// Typed argument shapes; their input schemas are reflected below.

type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type alwaysErrorArgs struct{}

// builtinTools maps each server identity to its advertised tool descriptors.
// Identities absent from the map list zero tools, which is not an error.
func builtinTools() map[string][]mcp.Tool {
	return map[string][]mcp.Tool{
		ServerCalc: {
			{
				Name:        "add",
				Description: "Adds two numbers a and b together and returns the sum",
				InputSchema: reflectInputSchema[addArgs](true),
			},
		},
		ServerFile: {
			{
				Name:        "write_file",
				Description: "Writes content to a file at the specified path",
				InputSchema: reflectInputSchema[writeFileArgs](true),
			},
		},
		ServerError: {
			{
				Name:        "always_error",
				Description: "Always returns a tool execution error",
				InputSchema: reflectInputSchema[alwaysErrorArgs](false),
			},
		},
	}
}

// builtinHandlers maps (identity, tool) pairs to behaviors. Pairs absent
// from the map produce an "unknown tool" result at dispatch.
func builtinHandlers() map[toolKey]toolFunc {
	return map[toolKey]toolFunc{
		{ServerCalc, "add"}:           addTool,
		{ServerError, "always_error"}: alwaysErrorTool,
	}
}

// addTool sums the numeric arguments a and b. Missing or non-numeric
// arguments default to zero rather than raising an error.
func addTool(args json.RawMessage) *mcp.CallToolResult {
	a := numberArg(args, "a")
	b := numberArg(args, "b")
	return textResult(strconv.FormatFloat(a+b, 'f', -1, 64))
}

func alwaysErrorTool(json.RawMessage) *mcp.CallToolResult {
	return errorResult("This tool always fails as designed")
}

func unknownToolResult(name string) *mcp.CallToolResult {
	return errorResult(fmt.Sprintf("Unknown tool: %s", name))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

// numberArg extracts a float64 argument by key from the raw arguments
// object. Any shape mismatch yields the zero value.
func numberArg(raw json.RawMessage, key string) float64 {
	if len(raw) == 0 {
		return 0
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return 0
	}
	if v, ok := args[key].(float64); ok {
		return v
	}
	return 0
}

// reflectInputSchema reflects a typed argument struct into the simplified
// protocol input schema shape. Schemas that allow additional properties omit
// the field, matching the JSON-schema default; closed schemas state false
// explicitly.
func reflectInputSchema[A any](allowAdditional bool) mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: allowAdditional,
	}
	s := r.Reflect(new(A))

	var additional *bool
	if !allowAdditional {
		f := false
		additional = &f
	}

	// Only object schemas map onto the protocol shape.
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{
			Type:                 "object",
			Properties:           map[string]mcp.SchemaProperty{},
			AdditionalProperties: additional,
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toSchemaProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}

	return mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: additional,
	}
}

// toSchemaProperty recursively maps a reflected schema node to the simplified
// protocol property shape.
func toSchemaProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toSchemaProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toSchemaProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}
