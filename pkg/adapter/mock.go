package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/retailgate/pkg/artifact"
)

// MockAdapter returns deterministic responses for local runs and tests.
// Responses are keyed by a substring of the prompt so capability prompts
// with dynamic payloads still match.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Fail            error
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined
// responses keyed by prompt substring.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns a deterministic artifact for the prompt.
func (a *MockAdapter) Generate(_ context.Context, model string, prompt string) (*artifact.Artifact, error) {
	if a.Fail != nil {
		return nil, a.Fail
	}
	if model == "" {
		model = "mock-1"
	}
	for key, response := range a.responses {
		if strings.Contains(prompt, key) {
			return artifact.New(response, a.Name(), model, prompt), nil
		}
	}
	content := fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	return artifact.New(content, a.Name(), model, prompt), nil
}
