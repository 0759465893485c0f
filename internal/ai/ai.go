// Package ai defines the provider-neutral contract for the generative model
// used by the extraction service.
package ai

import (
	"context"
	"errors"
)

// ErrQuotaExceeded marks a provider rate-limit (HTTP 429) that survived the
// retry budget. It is terminal for a single call only.
var ErrQuotaExceeded = errors.New("ai provider quota exceeded")

// Generator sends a single prompt to the model and returns its textual
// response.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Gateway is the full capability surface the extraction service relies on:
// credential validation, model discovery and prompt invocation.
type Gateway interface {
	Generator

	// ValidateKey reports whether the configured credentials can reach the
	// provider. It is a capability check, not an error path.
	ValidateKey(ctx context.Context) bool

	// ResolveModel returns the model identifier used for generation,
	// discovering one from the provider when none is configured.
	ResolveModel(ctx context.Context) string
}
