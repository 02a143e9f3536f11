// Package llm talks to hosted language models. Callers build a Request,
// optionally with a JSON schema, and get back validated JSON.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one response per request.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a single-turn or short multi-turn prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for structured output and makes
	// the response subject to validation.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output.
type Response struct {
	// Content is validated JSON when the request carried a Schema and the
	// raw text otherwise.
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is "end" or "max_tokens".
	StopReason string
}

// Usage is the token count of one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type purposeKey struct{}

// WithPurpose labels requests made with ctx for the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok {
		return v
	}
	return "unknown"
}

// finish validates content against the request schema and assembles the
// response shared by every provider.
func finish(req Request, content json.RawMessage, usage Usage, model, stop string) (*Response, error) {
	if req.Schema != nil {
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}
