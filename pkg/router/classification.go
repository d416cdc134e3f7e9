// Package router decides which strategy answers a query: policy
// document lookup, generated SQL, both, or neither. The decision merges
// a deterministic keyword detector with an LLM boolean classifier; an
// embedding hint slot exists but currently never fires.
package router

// Decision is the routing outcome.
type Decision string

// Routing outcomes.
const (
	DecisionSQL     Decision = "sql"
	DecisionDocs    Decision = "docs"
	DecisionHybrid  Decision = "hybrid"
	DecisionUnknown Decision = "unknown"
)

// Source tags where a classification came from.
type Source string

// Classification sources.
const (
	SourceHeuristic Source = "heuristic"
	SourceLLM       Source = "llm"
	SourceMerged    Source = "merged"
)

// Classification is the merged routing verdict for one query. It is
// built once, immutable, and consumed by the orchestrator.
type Classification struct {
	RequiresSQL    bool   `json:"requires_sql"`
	RequiresPolicy bool   `json:"requires_policy"`
	Unknown        bool   `json:"unknown"`
	Explanation    string `json:"explanation"`
	Source         Source `json:"source"`
}

// Decision derives the routing outcome from the three booleans. The
// precedence is fixed: unknown wins, then hybrid, then policy-only docs,
// then sql, and anything else defaults to docs.
func (c Classification) Decision() Decision {
	if c.Unknown {
		return DecisionUnknown
	}
	if c.RequiresSQL && c.RequiresPolicy {
		return DecisionHybrid
	}
	if c.RequiresPolicy {
		return DecisionDocs
	}
	if c.RequiresSQL {
		return DecisionSQL
	}
	return DecisionDocs
}

// RouteResult is the externally visible routing payload.
type RouteResult struct {
	NormalizedQuery   string   `json:"normalized_query"`
	RequiresSQL       bool     `json:"requires_sql"`
	RequiresPolicy    bool     `json:"requires_policy"`
	Unknown           bool     `json:"unknown"`
	Decision          Decision `json:"decision"`
	Explanation       string   `json:"explanation"`
	Source            Source   `json:"source"`
	KeywordPolicyHit  bool     `json:"policy_keyword_hit"`
	EmbeddingDecision Decision `json:"embedding_decision,omitempty"`
}
