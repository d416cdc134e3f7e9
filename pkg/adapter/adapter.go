// Package adapter provides LLM provider adapters behind one interface.
// The rest of the system treats text generation as an opaque capability;
// adapters only move prompts to providers and completions back.
package adapter

import (
	"context"

	"github.com/zen-systems/retailgate/pkg/artifact"
)

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a prompt to the model and returns an artifact.
	Generate(ctx context.Context, model string, prompt string) (*artifact.Artifact, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Info holds metadata about an adapter.
type Info struct {
	Name   string
	Models []ModelInfo
}

// ModelInfo holds metadata about a model.
type ModelInfo struct {
	ID          string
	Description string
}
