package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrDuplicate    = errors.New("tool already registered")
)

// Provider interface for tool implementations
type Provider interface {
	Definition() Definition
	Execute(ctx context.Context, tool string, params map[string]interface{}, call *Call) (*Result, error)
}

// Registry manages tool discovery and execution
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	tools     map[string]string // tool name -> provider id
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		tools:     make(map[string]string),
	}
}

// Register adds a provider. Tool names are global across providers.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("provider ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range def.Tools {
		if owner, ok := r.tools[tool.Name]; ok && owner != def.ID {
			return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicate, tool.Name, owner)
		}
	}

	r.providers[def.ID] = provider
	for _, tool := range def.Tools {
		r.tools[tool.Name] = def.ID
	}
	return nil
}

// Unregister removes a provider and its tools
func (r *Registry) Unregister(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.providers, providerID)
	for name, owner := range r.tools {
		if owner == providerID {
			delete(r.tools, name)
		}
	}
}

// Get retrieves a provider by ID
func (r *Registry) Get(providerID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[providerID]
	return p, ok
}

// Lookup finds the tool and its provider by tool name
func (r *Registry) Lookup(name string) (Provider, Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.tools[name]
	if !ok {
		return nil, Tool{}, false
	}
	p := r.providers[owner]
	for _, tool := range p.Definition().Tools {
		if tool.Name == name {
			return p, tool, true
		}
	}
	return nil, Tool{}, false
}

// List returns all provider definitions, optionally filtered by category
func (r *Registry) List(category *Category) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.providers))
	for _, p := range r.providers {
		def := p.Definition()
		if category == nil || def.Category == *category {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Tools returns every registered tool sorted by name
func (r *Registry) Tools() []Tool {
	var tools []Tool
	for _, def := range r.List(nil) {
		tools = append(tools, def.Tools...)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Discover finds relevant tools for a given intent
func (r *Registry) Discover(intent string, limit int) []Tool {
	type scoredTool struct {
		tool  Tool
		score float64
	}

	intentLower := strings.ToLower(intent)
	var results []scoredTool
	for _, def := range r.List(nil) {
		for _, tool := range def.Tools {
			if score := relevance(intentLower, def, tool); score > 0 {
				results = append(results, scoredTool{tool: tool, score: score})
			}
		}
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	output := make([]Tool, 0, limit)
	for i := 0; i < len(results) && i < limit; i++ {
		output = append(output, results[i].tool)
	}
	return output
}

// Execute runs a tool by name
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}, call *Call) (*Result, error) {
	provider, _, ok := r.Lookup(name)
	if !ok {
		return &Result{
			Success: false,
			Error:   stringPtr(fmt.Sprintf("tool not found: %s", name)),
		}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	return provider.Execute(ctx, name, params, call)
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	defs := r.List(nil)
	var totalTools, blocking int
	categories := make(map[string]int)

	for _, def := range defs {
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
		for _, tool := range def.Tools {
			if tool.Blocking {
				blocking++
			}
		}
	}

	return map[string]interface{}{
		"total_providers": len(defs),
		"total_tools":     totalTools,
		"blocking_tools":  blocking,
		"categories":      categories,
	}
}

func relevance(intent string, def Definition, tool Tool) float64 {
	score := 0.0

	name := strings.ReplaceAll(tool.Name, "_", " ")
	if strings.Contains(intent, tool.Name) || strings.Contains(intent, name) {
		score += 10.0
	}

	for _, word := range strings.Fields(strings.ToLower(tool.Description)) {
		if len(word) > 3 && strings.Contains(intent, word) {
			score += 5.0
		}
	}

	for _, capability := range def.Capabilities {
		if strings.Contains(intent, strings.ReplaceAll(strings.ToLower(capability), "_", " ")) {
			score += 3.0
		}
	}

	if strings.Contains(intent, string(def.Category)) {
		score += 2.0
	}

	return score
}

func stringPtr(s string) *string {
	return &s
}

// ErrorResult builds a failed result carrying msg
func ErrorResult(msg string) *Result {
	return &Result{Success: false, Error: stringPtr(msg)}
}
