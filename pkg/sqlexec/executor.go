package sqlexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/retailgate/pkg/capability"
	"github.com/zen-systems/retailgate/pkg/guardrail"
	"github.com/zen-systems/retailgate/pkg/trace"
)

// DefaultMaxAttempts bounds the retry loop.
const DefaultMaxAttempts = 3

const (
	blockedMessage     = "Blocked non-SELECT statement"
	piiBlockedMessage  = "Query includes PII columns; request blocked."
	emptyWarning       = "Empty result set"
	unavailableMessage = "The language model is currently unavailable; please try again later."

	emptyResultCorrection = "Query returned zero rows; please regenerate the SQL based on the schema and policy context to return correct results."
)

// RowSource executes a single SELECT with a connection scoped to the
// call. store.Store satisfies it.
type RowSource interface {
	ExecuteSelect(ctx context.Context, query string) ([]string, []map[string]any, error)
}

// Executor is the retry/self-correction state machine.
type Executor struct {
	store       RowSource
	caps        capability.Capabilities
	maxAttempts int
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts overrides the attempt bound.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// New creates an executor over a row source and correction capability.
func New(store RowSource, caps capability.Capabilities, opts ...Option) *Executor {
	e := &Executor{store: store, caps: caps, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func isSafe(sqlText string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(sqlText)), "select")
}

// ExecuteWithRetry runs sqlText against the store, regenerating it from
// failures up to the attempt bound. Attempts are strictly sequential:
// each correction depends on the previous error.
//
// Terminal without retry: a non-SELECT statement, a "no such table"
// error (regeneration cannot fix a schema mismatch), a PII column hit
// (guardrail blocks the whole result), and an unreachable correction
// capability. Runtime errors and empty results consume attempts; an empty
// result after the last attempt is returned as a success with a warning
// rather than a failure.
func (e *Executor) ExecuteWithRetry(ctx context.Context, log *trace.Logger, sqlText, schema string) *Outcome {
	originalSQL := sqlText
	var attempts []Attempt

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		sqlText = capability.ExtractSQL(sqlText)

		safe := isSafe(sqlText)
		log.Log("sql_guardrail_check", trace.Fields{
			"attempt":     attempt,
			"sql_preview": preview(sqlText),
			"allowed":     safe,
		})
		if !safe {
			attempts = append(attempts, Attempt{Index: attempt, Status: AttemptBlocked, Err: blockedMessage})
			return &Outcome{
				Attempts: attempts,
				Failure:  &Failure{Kind: FailUnsafeStatement, Message: blockedMessage},
			}
		}

		columns, rows, err := e.store.ExecuteSelect(ctx, sqlText)
		if err != nil {
			errMsg := err.Error()
			attempts = append(attempts, Attempt{Index: attempt, Status: AttemptError, Err: errMsg})
			log.Log("sql_execute", trace.Fields{"attempt": attempt, "status": "error", "error": errMsg})

			if strings.Contains(strings.ToLower(errMsg), "no such table") {
				return &Outcome{
					Attempts: attempts,
					Failure:  &Failure{Kind: FailSchemaMismatch, Message: errMsg, Schema: schema},
				}
			}
			if attempt == e.maxAttempts {
				break
			}
			corrected, corrErr := e.caps.CorrectSQL(ctx, sqlText, errMsg, schema)
			if corrErr != nil {
				return &Outcome{
					Attempts: attempts,
					Failure:  &Failure{Kind: FailUnavailable, Message: unavailableMessage},
				}
			}
			sqlText = corrected
			log.Log("sql_retry", trace.Fields{
				"attempt":          attempt + 1,
				"previous_attempt": attempt,
				"sql_preview":      preview(sqlText),
				"cause":            errMsg,
			})
			continue
		}

		if len(rows) == 0 {
			attempts = append(attempts, Attempt{Index: attempt, Status: AttemptEmpty, Err: emptyWarning})
			log.Log("sql_execute", trace.Fields{"attempt": attempt, "status": "empty", "rows": 0})

			if attempt == e.maxAttempts {
				// Exhausting retries on an empty result is still a valid
				// answer, not a failure.
				return &Outcome{
					Columns:  columns,
					Rows:     []map[string]any{},
					Attempts: attempts,
					Warning:  emptyWarning,
				}
			}
			corrected, corrErr := e.caps.CorrectSQL(ctx, sqlText, emptyResultCorrection, schema)
			if corrErr != nil {
				return &Outcome{
					Attempts: attempts,
					Failure:  &Failure{Kind: FailUnavailable, Message: unavailableMessage},
				}
			}
			sqlText = corrected
			log.Log("sql_retry_empty", trace.Fields{
				"attempt":          attempt + 1,
				"previous_attempt": attempt,
				"sql_preview":      preview(sqlText),
				"cause":            "empty_result",
			})
			continue
		}

		// The PII gate is the first check on any non-empty result.
		if piiCols := guardrail.PIIColumns(columns); len(piiCols) > 0 {
			attempts = append(attempts, Attempt{
				Index:     attempt,
				Status:    AttemptBlockedPII,
				Err:       piiBlockedMessage,
				PIIFields: piiCols,
			})
			log.Log("sql_pii_guardrail", trace.Fields{
				"attempt": attempt,
				"applied": true,
				"fields":  piiCols,
				"rows":    len(rows),
			})
			return &Outcome{
				Attempts: attempts,
				Failure:  &Failure{Kind: FailPIIBlocked, Message: piiBlockedMessage, PIIFields: piiCols},
			}
		}
		log.Log("sql_pii_guardrail", trace.Fields{"attempt": attempt, "applied": false, "rows": len(rows)})

		attempts = append(attempts, Attempt{Index: attempt, Status: AttemptSuccess})
		log.Log("sql_execute", trace.Fields{"attempt": attempt, "status": "success", "rows": len(rows)})
		return &Outcome{Columns: columns, Rows: rows, Attempts: attempts}
	}

	return &Outcome{
		Attempts: attempts,
		Failure: &Failure{
			Kind:    FailExhausted,
			Message: fmt.Sprintf("Failed after %d attempts", e.maxAttempts),
			SQL:     originalSQL,
		},
	}
}

func preview(sqlText string) string {
	if len(sqlText) > 200 {
		return sqlText[:200]
	}
	return sqlText
}
