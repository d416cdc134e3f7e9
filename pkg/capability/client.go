package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/retailgate/pkg/adapter"
	"github.com/zen-systems/retailgate/pkg/archive"
	"github.com/zen-systems/retailgate/pkg/artifact"
	"github.com/zen-systems/retailgate/pkg/trace"
)

// Route selects the adapter and model serving one capability.
type Route struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// Routes maps capabilities to routes with a shared default.
type Routes struct {
	Default      Route            `yaml:"default"`
	ByCapability map[string]Route `yaml:"capabilities,omitempty"`
}

func (r Routes) resolve(name string) Route {
	if route, ok := r.ByCapability[name]; ok {
		if route.Adapter == "" {
			route.Adapter = r.Default.Adapter
		}
		if route.Model == "" {
			route.Model = r.Default.Model
		}
		return route
	}
	return r.Default
}

// Client implements Capabilities over provider adapters.
type Client struct {
	adapters map[string]adapter.Adapter
	routes   Routes
	sink     trace.Sink
	archive  *archive.Store
}

// Option configures a Client.
type Option func(*Client)

// WithSink mirrors every capability call to a trace sink.
func WithSink(sink trace.Sink) Option {
	return func(c *Client) {
		c.sink = sink
	}
}

// WithArchive persists every generated artifact to the store.
func WithArchive(store *archive.Store) Option {
	return func(c *Client) {
		c.archive = store
	}
}

// NewClient creates a capability client over the given adapters.
func NewClient(adapters map[string]adapter.Adapter, routes Routes, opts ...Option) (*Client, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters configured")
	}
	c := &Client{adapters: adapters, routes: routes, sink: trace.Nop{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) generate(ctx context.Context, name, prompt string) (*artifact.Artifact, error) {
	route := c.routes.resolve(name)
	adapterName := route.Adapter
	if adapterName == "" && len(c.adapters) == 1 {
		for only := range c.adapters {
			adapterName = only
		}
	}
	adapterImpl, ok := c.adapters[adapterName]
	if !ok || adapterImpl == nil {
		return nil, fmt.Errorf("%s: adapter %q not found", name, adapterName)
	}

	model := route.Model
	if model == "" {
		if models := adapterImpl.Models(); len(models) > 0 {
			model = models[0]
		}
	}

	art, err := adapterImpl.Generate(ctx, model, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	art = art.WithMetadata("capability", name)

	if c.archive != nil {
		// Archive failures are logged, never fatal to the call.
		if _, archiveErr := c.archive.Put(name, art); archiveErr != nil {
			c.sink.Log(trace.Event{
				Timestamp: art.CreatedAt,
				Stage:     "artifact_archive",
				Fields:    trace.Fields{"capability": name, "error": archiveErr.Error()},
			})
		}
	}

	c.sink.Log(trace.Event{
		Timestamp: art.CreatedAt,
		Stage:     "capability_call",
		Fields: trace.Fields{
			"capability":    name,
			"adapter":       adapterImpl.Name(),
			"model":         model,
			"artifact_id":   art.ID,
			"artifact_hash": art.Hash,
		},
	})
	return art, nil
}

// Classify implements Capabilities. Malformed structured payloads fail
// open toward SQL rather than toward unknown; a dead provider is
// returned as an error so callers never mistake it for a decision.
func (c *Client) Classify(ctx context.Context, query string) (ClassifierResult, error) {
	art, err := c.generate(ctx, CapClassify, buildClassifierPrompt(query))
	if err != nil {
		return ClassifierResult{}, err
	}
	return parseClassifierResponse(art.Content), nil
}

// SelectPolicyContext implements Capabilities.
func (c *Client) SelectPolicyContext(ctx context.Context, query, document string) (string, error) {
	art, err := c.generate(ctx, CapPolicyContext, buildPolicyContextPrompt(query, document))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(art.Content), nil
}

// GenerateSQL implements Capabilities.
func (c *Client) GenerateSQL(ctx context.Context, query, businessRule, schema string) (string, error) {
	art, err := c.generate(ctx, CapGenerateSQL, buildGenerateSQLPrompt(query, businessRule, schema))
	if err != nil {
		return "", err
	}
	return ExtractSQL(art.Content), nil
}

// CorrectSQL implements Capabilities.
func (c *Client) CorrectSQL(ctx context.Context, sqlText, errorMessage, schema string) (string, error) {
	art, err := c.generate(ctx, CapCorrectSQL, buildCorrectSQLPrompt(sqlText, errorMessage, schema))
	if err != nil {
		return "", err
	}
	return ExtractSQL(art.Content), nil
}

// AnswerFromDocs implements Capabilities.
func (c *Client) AnswerFromDocs(ctx context.Context, query, policyContext string) (string, error) {
	art, err := c.generate(ctx, CapAnswerFromDocs, buildAnswerFromDocsPrompt(query, policyContext))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(art.Content), nil
}

type classifierPayload struct {
	RequiresSQL    *bool  `json:"requires_sql"`
	RequiresPolicy *bool  `json:"requires_policy"`
	Unknown        *bool  `json:"unknown"`
	Explanation    string `json:"explanation"`
}

func parseClassifierResponse(content string) ClassifierResult {
	// Fail-open default: route toward SQL, never toward unknown.
	fallback := ClassifierResult{RequiresSQL: true}

	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload classifierPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return fallback
	}
	if payload.RequiresSQL == nil || payload.RequiresPolicy == nil {
		return fallback
	}

	result := ClassifierResult{
		RequiresSQL:    *payload.RequiresSQL,
		RequiresPolicy: *payload.RequiresPolicy,
		Explanation:    payload.Explanation,
	}
	if payload.Unknown != nil {
		result.Unknown = *payload.Unknown
	}
	return result
}
