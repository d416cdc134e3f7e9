package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/retailgate/pkg/capability"
	"github.com/zen-systems/retailgate/pkg/trace"
)

// Router produces one RouteResult per query by merging the keyword
// detector, the LLM classifier, and an optional embedding hint.
type Router struct {
	caps         capability.Capabilities
	keywords     *KeywordDetector
	embedding    *EmbeddingRouter
	skipKeywords bool
}

// Option configures a Router.
type Option func(*Router)

// SkipKeywordDetection disables the keyword stage. Used when an outer
// layer runs keyword detection itself, to avoid double-counting hits.
func SkipKeywordDetection() Option {
	return func(r *Router) {
		r.skipKeywords = true
	}
}

// New creates a router over the given capabilities.
func New(caps capability.Capabilities, opts ...Option) *Router {
	r := &Router{
		caps:      caps,
		keywords:  NewKeywordDetector(),
		embedding: NewEmbeddingRouter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize collapses whitespace for the deterministic stages.
func Normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// Route classifies a query. The merge rule is fixed: policy keywords
// only ever set the policy flag, the SQL flag always comes from the LLM,
// and unknown comes from the LLM. An unreachable classifier is returned
// as an error, never silently defaulted.
func (r *Router) Route(ctx context.Context, log *trace.Logger, query string) (*RouteResult, error) {
	normalized := Normalize(query)
	log.Log("query_preprocess", trace.Fields{"original": query, "normalized": normalized})

	keywordHit := false
	if !r.skipKeywords {
		keywordHit = r.keywords.Detect(normalized)
		log.Log("policy_keyword", trace.Fields{"policy_keyword_hit": keywordHit})
	}

	hint := r.embedding.Suggest(normalized)
	log.Log("embedding_hint", trace.Fields{"used": hint != nil})

	// Trivially empty or symbol-only input is unknown; no model call.
	if IsNonsense(normalized) {
		result := &RouteResult{
			NormalizedQuery:  normalized,
			Unknown:          true,
			Decision:         DecisionUnknown,
			Explanation:      "Query is empty or not understandable.",
			Source:           SourceHeuristic,
			KeywordPolicyHit: keywordHit,
		}
		log.Log("classify_query", trace.Fields{
			"query":              query,
			"normalized_query":   normalized,
			"requires_sql":       false,
			"requires_policy":    false,
			"unknown":            true,
			"decision":           string(DecisionUnknown),
			"explanation":        result.Explanation,
			"source":             string(SourceHeuristic),
			"policy_keyword_hit": keywordHit,
		})
		return result, nil
	}

	llm, err := r.caps.Classify(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("classify query: %w", err)
	}

	merged := Classification{
		RequiresSQL:    llm.RequiresSQL,
		RequiresPolicy: keywordHit || llm.RequiresPolicy,
		Unknown:        llm.Unknown,
		Explanation:    llm.Explanation,
		Source:         SourceMerged,
	}

	result := &RouteResult{
		NormalizedQuery:  normalized,
		RequiresSQL:      merged.RequiresSQL,
		RequiresPolicy:   merged.RequiresPolicy,
		Unknown:          merged.Unknown,
		Explanation:      merged.Explanation,
		Source:           merged.Source,
		KeywordPolicyHit: keywordHit,
	}

	if hint != nil {
		result.EmbeddingDecision = hint.Decision
		switch hint.Decision {
		case DecisionDocs:
			result.RequiresPolicy = true
			result.RequiresSQL = false
		case DecisionSQL:
			result.RequiresSQL = true
		case DecisionHybrid:
			result.RequiresPolicy = true
			result.RequiresSQL = true
		}
		merged.RequiresSQL = result.RequiresSQL
		merged.RequiresPolicy = result.RequiresPolicy
	}

	result.Decision = merged.Decision()

	log.Log("classify_query", trace.Fields{
		"query":              query,
		"normalized_query":   result.NormalizedQuery,
		"requires_sql":       result.RequiresSQL,
		"requires_policy":    result.RequiresPolicy,
		"unknown":            result.Unknown,
		"decision":           string(result.Decision),
		"explanation":        result.Explanation,
		"source":             string(result.Source),
		"policy_keyword_hit": result.KeywordPolicyHit,
	})

	return result, nil
}
