// Package service provides the tool registry that sits between the transports and
// the providers.
//
// The registry maintains a catalog of service providers and indexes their tools by
// name. Every call goes through Execute, which:
//   - resolves the tool name to its provider
//   - validates the argument object against the tool's parameter schema
//   - fills in parameter defaults on a copy of the arguments
//   - runs the provider and wraps the outcome in a types.Result envelope
//
// Provider errors, validation errors and panics all become failure envelopes whose
// text starts with the failure marker. Structured payloads are rendered as indented
// JSON. Each call is logged with its tool name, call id, duration and outcome.
//
// Example Usage:
//
//	registry := service.NewRegistry(service.WithLogger(log), service.WithMetrics(metrics))
//	registry.Register(filesystem.NewProvider(ops))
//	res := registry.Execute(ctx, "move-file", params, &types.Context{Transport: "http"})
package service
