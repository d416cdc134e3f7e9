// Package capability exposes the model-backed operations the pipeline
// consumes: query classification, policy text selection, SQL generation
// and correction, and doc-grounded answering. Each is an opaque call
// with a latency and a failure mode; callers never see provider detail.
package capability

import "context"

// Capability names used for routing and trace payloads.
const (
	CapClassify       = "classify"
	CapPolicyContext  = "select_policy_context"
	CapGenerateSQL    = "generate_sql"
	CapCorrectSQL     = "correct_sql"
	CapAnswerFromDocs = "answer_from_docs"
)

// ClassifierResult is the structured payload of one classification call.
type ClassifierResult struct {
	RequiresSQL    bool   `json:"requires_sql"`
	RequiresPolicy bool   `json:"requires_policy"`
	Unknown        bool   `json:"unknown"`
	Explanation    string `json:"explanation"`
}

// Capabilities is the full set of opaque model-backed operations. All
// implementations must make an "unavailable" failure distinguishable
// from a well-formed but empty response; see adapter.IsUnavailable.
type Capabilities interface {
	// Classify decides whether a query needs SQL, policy lookup, both,
	// or cannot be understood.
	Classify(ctx context.Context, query string) (ClassifierResult, error)

	// SelectPolicyContext reduces a full policy document to the text
	// relevant to the query.
	SelectPolicyContext(ctx context.Context, query, document string) (string, error)

	// GenerateSQL turns a query, an optional business rule, and a schema
	// summary into a candidate SELECT statement.
	GenerateSQL(ctx context.Context, query, businessRule, schema string) (string, error)

	// CorrectSQL regenerates a statement using the prior error as
	// feedback.
	CorrectSQL(ctx context.Context, sqlText, errorMessage, schema string) (string, error)

	// AnswerFromDocs answers a question strictly from the provided
	// policy context.
	AnswerFromDocs(ctx context.Context, query, policyContext string) (string, error)
}
