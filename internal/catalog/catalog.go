// Package catalog loads the static scenario descriptor that enumerates the
// reference servers, their declared capabilities, and the conformance
// scenario matrix. The catalog is read once at startup and never mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultPath is the descriptor location relative to the working directory.
const DefaultPath = "scenarios/data.json"

// Catalog is the root of the descriptor document.
type Catalog struct {
	Servers   map[string]Server `json:"servers"`
	Scenarios []Scenario        `json:"scenarios"`
}

// Server declares what a reference server identity exposes. The harness
// loads these declarations for scenario bookkeeping; it does not interpret
// them beyond validation.
type Server struct {
	Description       string                       `json:"description"`
	Tools             map[string]ToolDef           `json:"tools"`
	Resources         map[string]ResourceDef       `json:"resources"`
	ResourceTemplates map[string]ResourceTemplate  `json:"resourceTemplates"`
	Prompts           map[string]PromptDef         `json:"prompts"`
	PromptTemplates   map[string]PromptTemplateDef `json:"promptTemplates"`
}

// ToolDef describes a declared tool.
type ToolDef struct {
	Description string `json:"description"`
}

// ResourceDef describes a declared resource.
type ResourceDef struct {
	Description string `json:"description"`
}

// ResourceTemplate describes a parameterized resource.
type ResourceTemplate struct {
	Description string              `json:"description"`
	Params      map[string]ParamDef `json:"params"`
}

// PromptDef describes a declared prompt.
type PromptDef struct {
	Description string `json:"description"`
}

// PromptTemplateDef describes a parameterized prompt.
type PromptTemplateDef struct {
	Description string              `json:"description"`
	Params      map[string]ParamDef `json:"params"`
}

// ParamDef describes a single template parameter.
type ParamDef struct {
	Description string `json:"description"`
}

// Scenario is a numbered compliance test case pairing a target server
// identity with an expected interaction outcome.
type Scenario struct {
	ID          uint32   `json:"id"`
	Description string   `json:"description"`
	ClientIDs   []string `json:"client_ids"`
	ServerName  string   `json:"server_name"`
	HTTPOnly    bool     `json:"http_only"`
}

// HasClient reports whether the given client identifier participates in the
// scenario.
func (s *Scenario) HasClient(clientID string) bool {
	for _, id := range s.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// Load reads and validates the descriptor at path. A missing file or
// malformed document is fatal to the caller; there is no recovery path.
func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios file at %q: %w", path, err)
	}

	var cat Catalog
	if err := json.Unmarshal(content, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios JSON: %w", err)
	}

	if err := cat.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenarios data: %w", err)
	}
	return &cat, nil
}

// Find returns the scenario with the given id.
func (c *Catalog) Find(id uint32) (*Scenario, bool) {
	for i := range c.Scenarios {
		if c.Scenarios[i].ID == id {
			return &c.Scenarios[i], true
		}
	}
	return nil, false
}

// validate enforces the loader-time invariants: positive ids, non-empty
// descriptions and participant sets, and every server_name resolving to an
// entry in the servers map.
func (c *Catalog) validate() error {
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		if s.ID == 0 {
			return fmt.Errorf("scenario at index %d: id must be positive", i)
		}
		if s.Description == "" {
			return fmt.Errorf("scenario %d: description is empty", s.ID)
		}
		if len(s.ClientIDs) == 0 {
			return fmt.Errorf("scenario %d: client_ids is empty", s.ID)
		}
		if _, ok := c.Servers[s.ServerName]; !ok {
			return fmt.Errorf("scenario %d: server %q not found in servers map", s.ID, s.ServerName)
		}
	}
	return nil
}
