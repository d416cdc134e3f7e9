package router

import "strings"

// policyTerms is the fixed term set whose presence marks a query as
// policy-related. Hits only ever set the policy flag, never SQL.
var policyTerms = []string{
	"policy",
	"rule",
	"guideline",
	"vip",
	"refund",
	"return",
	"shipping",
	"restocking",
}

// KeywordDetector flags queries containing policy vocabulary.
type KeywordDetector struct {
	terms []string
}

// NewKeywordDetector creates a detector over the fixed policy term set.
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{terms: policyTerms}
}

// Detect reports whether the query mentions any policy term.
func (d *KeywordDetector) Detect(query string) bool {
	lowered := strings.ToLower(query)
	for _, term := range d.terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// Terms returns the detector's term set.
func (d *KeywordDetector) Terms() []string {
	out := make([]string, len(d.terms))
	copy(out, d.terms)
	return out
}
