// Package agent sequences one query through the full pipeline: PII
// pre-check, routing, policy context selection, SQL generation, and
// bounded self-correcting execution. One Handle call is one request.
package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/zen-systems/retailgate/pkg/adapter"
	"github.com/zen-systems/retailgate/pkg/capability"
	"github.com/zen-systems/retailgate/pkg/docs"
	"github.com/zen-systems/retailgate/pkg/router"
	"github.com/zen-systems/retailgate/pkg/sqlexec"
	"github.com/zen-systems/retailgate/pkg/trace"
)

// Fixed user-visible messages. Tests and downstream clients match on
// these exact strings.
const (
	piiRefusalMessage    = "I'm sorry, I cannot share customer PII. I can provide aggregated or de-identified results instead."
	clarificationMessage = "I couldn't understand that request. Please rephrase or ask a specific question."
	noPolicyMessage      = "No relevant policy found."
	unavailableMessage   = "The language model is currently unavailable; please try again later."
)

// piiRequestTerms short-circuits queries that ask for raw PII before any
// model call is made. Matched as lowercase substrings of the raw query.
var piiRequestTerms = []string{"email", "phone", "address", "pii"}

// Store is the relational surface the agent needs.
type Store interface {
	SchemaSummary(ctx context.Context) (string, error)
	ExecuteSelect(ctx context.Context, query string) ([]string, []map[string]any, error)
}

// Response is the terminal payload of one handled query. Message carries
// user-facing text, Result carries SQL execution detail when the query
// took a sql or hybrid path, and Error carries the internal taxonomy tag
// for failed requests.
type Response struct {
	RequestID string           `json:"request_id"`
	Decision  router.Decision  `json:"decision,omitempty"`
	Message   string           `json:"message,omitempty"`
	Result    *sqlexec.Outcome `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Agent owns one pipeline configuration and is safe for concurrent
// Handle calls; the only shared mutable state is the store's schema
// cache.
type Agent struct {
	caps     capability.Capabilities
	store    Store
	doc      docs.Document
	router   *router.Router
	selector *docs.Selector
	executor *sqlexec.Executor
	sink     trace.Sink
}

// Option configures an Agent.
type Option func(*Agent)

// WithSink sets the stage event sink. Defaults to a no-op sink.
func WithSink(sink trace.Sink) Option {
	return func(a *Agent) {
		a.sink = sink
	}
}

// WithMaxAttempts bounds the SQL self-correction loop.
func WithMaxAttempts(n int) Option {
	return func(a *Agent) {
		a.executor = sqlexec.New(a.store, a.caps, sqlexec.WithMaxAttempts(n))
	}
}

// New builds an agent over the given capabilities, store, and policy
// document.
func New(caps capability.Capabilities, store Store, doc docs.Document, opts ...Option) *Agent {
	a := &Agent{
		caps:     caps,
		store:    store,
		doc:      doc,
		router:   router.New(caps),
		selector: docs.NewSelector(caps),
		executor: sqlexec.New(store, caps),
		sink:     trace.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// matchPIITerms returns the literal PII-request terms present in query.
func matchPIITerms(query string) []string {
	lowered := strings.ToLower(query)
	var matched []string
	for _, term := range piiRequestTerms {
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// Handle answers one query. It never panics on capability failure: an
// unreachable model becomes the fixed "try later" message and any other
// failure is reported in Response.Error.
func (a *Agent) Handle(ctx context.Context, query string) Response {
	requestID := uuid.NewString()
	log := trace.NewLogger(a.sink, requestID)

	if matched := matchPIITerms(query); len(matched) > 0 {
		log.Log("pii_precheck", trace.Fields{"blocked": true, "fields": matched, "query": query})
		return Response{RequestID: requestID, Message: piiRefusalMessage, Error: "pii_blocked"}
	}
	log.Log("pii_precheck", trace.Fields{"blocked": false})

	route, err := a.router.Route(ctx, log, query)
	if err != nil {
		return a.failure(log, requestID, "", err)
	}
	log.Log("route", trace.Fields{"decision": string(route.Decision)})

	switch route.Decision {
	case router.DecisionUnknown:
		return Response{RequestID: requestID, Decision: route.Decision, Message: clarificationMessage}
	case router.DecisionDocs:
		return a.handleDocs(ctx, log, requestID, route)
	case router.DecisionSQL:
		return a.handleSQL(ctx, log, requestID, route, "")
	case router.DecisionHybrid:
		policyContext := a.policyContext(ctx, log, route.NormalizedQuery)
		return a.handleSQL(ctx, log, requestID, route, policyContext)
	}
	return Response{RequestID: requestID, Decision: route.Decision, Message: clarificationMessage}
}

func (a *Agent) policyContext(ctx context.Context, log *trace.Logger, query string) string {
	policyContext := a.selector.SelectContext(ctx, query, a.doc)
	log.Log("policy_context", trace.Fields{
		"empty":  strings.TrimSpace(policyContext) == "",
		"length": len(policyContext),
	})
	return policyContext
}

func (a *Agent) handleDocs(ctx context.Context, log *trace.Logger, requestID string, route *router.RouteResult) Response {
	policyContext := a.policyContext(ctx, log, route.NormalizedQuery)
	if strings.TrimSpace(policyContext) == "" {
		log.Log("final_answer", trace.Fields{"decision": string(route.Decision), "answered": false})
		return Response{RequestID: requestID, Decision: route.Decision, Message: noPolicyMessage}
	}

	answer, err := a.caps.AnswerFromDocs(ctx, route.NormalizedQuery, policyContext)
	if err != nil {
		return a.failure(log, requestID, route.Decision, err)
	}
	log.Log("final_answer", trace.Fields{"decision": string(route.Decision), "answered": true})
	return Response{RequestID: requestID, Decision: route.Decision, Message: answer}
}

func (a *Agent) handleSQL(ctx context.Context, log *trace.Logger, requestID string, route *router.RouteResult, businessRule string) Response {
	schema, err := a.store.SchemaSummary(ctx)
	if err != nil {
		return Response{RequestID: requestID, Decision: route.Decision, Error: err.Error()}
	}

	sqlText, err := a.caps.GenerateSQL(ctx, route.NormalizedQuery, businessRule, schema)
	if err != nil {
		return a.failure(log, requestID, route.Decision, err)
	}
	log.Log("sql_generation", trace.Fields{
		"has_business_rule": businessRule != "",
		"sql_length":        len(sqlText),
	})

	outcome := a.executor.ExecuteWithRetry(ctx, log, sqlText, schema)
	response := Response{RequestID: requestID, Decision: route.Decision, Result: outcome}
	if outcome.Failed() {
		response.Error = string(outcome.Failure.Kind)
		if outcome.Failure.Kind == sqlexec.FailUnavailable {
			response.Message = unavailableMessage
		} else {
			response.Message = outcome.Failure.Message
		}
	} else if outcome.Warning != "" {
		response.Message = outcome.Warning
	}
	log.Log("final_answer", trace.Fields{
		"decision": string(route.Decision),
		"failed":   outcome.Failed(),
		"rows":     len(outcome.Rows),
		"attempts": len(outcome.Attempts),
	})
	return response
}

// failure maps a capability error to a terminal response. Unreachable
// models get the fixed retry-later text; anything else surfaces the
// error string directly.
func (a *Agent) failure(log *trace.Logger, requestID string, decision router.Decision, err error) Response {
	if adapter.IsUnavailable(err) {
		log.Log("final_answer", trace.Fields{"decision": string(decision), "failed": true, "cause": "llm_unavailable"})
		return Response{
			RequestID: requestID,
			Decision:  decision,
			Message:   unavailableMessage,
			Error:     string(sqlexec.FailUnavailable),
		}
	}
	log.Log("final_answer", trace.Fields{"decision": string(decision), "failed": true, "cause": err.Error()})
	return Response{RequestID: requestID, Decision: decision, Error: err.Error()}
}
