// Package sqlexec runs generated SQL against the retail store with a
// bounded self-correction loop. It owns the SELECT-only safety gate, the
// PII guardrail application, and the retry policy.
package sqlexec

// AttemptStatus is the terminal state of one attempt.
type AttemptStatus string

// Attempt statuses.
const (
	AttemptSuccess    AttemptStatus = "success"
	AttemptEmpty      AttemptStatus = "empty"
	AttemptError      AttemptStatus = "error"
	AttemptBlocked    AttemptStatus = "blocked"
	AttemptBlockedPII AttemptStatus = "blocked_pii"
)

// Attempt is one row of the append-only attempt log.
type Attempt struct {
	Index     int           `json:"attempt"`
	Status    AttemptStatus `json:"status"`
	Err       string        `json:"error,omitempty"`
	PIIFields []string      `json:"pii_fields,omitempty"`
}

// FailureKind is the internal error taxonomy. User-visible text lives in
// Failure.Message and never repeats these tags.
type FailureKind string

// Failure kinds. Only transient execution errors and empty results are
// retried; every other kind is immediately terminal.
const (
	FailUnavailable     FailureKind = "llm_unavailable"
	FailPIIBlocked      FailureKind = "pii_blocked"
	FailUnsafeStatement FailureKind = "unsafe_statement"
	FailSchemaMismatch  FailureKind = "schema_mismatch"
	FailExhausted       FailureKind = "exhausted"
)

// Failure describes a terminal execution failure.
type Failure struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Schema    string      `json:"schema,omitempty"`
	PIIFields []string    `json:"pii_fields,omitempty"`
	SQL       string      `json:"sql,omitempty"`
}

// Outcome is the terminal result of one retry loop. Exactly one shape
// holds: a success carries columns and rows (possibly empty, with a
// warning), a failure carries Failure and no rows.
type Outcome struct {
	Columns  []string         `json:"columns,omitempty"`
	Rows     []map[string]any `json:"rows,omitempty"`
	Warning  string           `json:"warning,omitempty"`
	Attempts []Attempt        `json:"attempts"`
	Failure  *Failure         `json:"failure,omitempty"`
}

// Failed reports whether the outcome is the failure shape.
func (o *Outcome) Failed() bool {
	return o.Failure != nil
}
