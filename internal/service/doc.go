// Package service provides the tool registry behind the agent tool-call boundary.
//
// The registry maintains a catalog of providers and the tools they expose,
// dispatches calls by tool name, and ranks tools for an intent.
//
// Components:
//   - Registry: Central tool catalog keyed by global tool name
//   - Provider: Interface for tool implementations
//   - Call: Caller scope (session id and page) passed to providers
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(action.NewToolProvider(bridge))
//	result, err := registry.Execute(ctx, "render_widget", params, &service.Call{Scope: page})
package service
