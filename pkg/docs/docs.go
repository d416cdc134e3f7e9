// Package docs loads the flat policy document and selects the slice of
// it relevant to a query.
package docs

import (
	"context"
	"os"
	"strings"

	"github.com/zen-systems/retailgate/pkg/capability"
)

// Document is the full policy text. A missing file yields an empty
// document rather than an error; the pipeline answers accordingly.
type Document struct {
	content string
}

// Load reads the policy document at path.
func Load(path string) Document {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}
	}
	return Document{content: string(data)}
}

// NewDocument wraps already-loaded policy text.
func NewDocument(content string) Document {
	return Document{content: content}
}

// FullText returns the whole document.
func (d Document) FullText() string {
	return d.content
}

// Empty reports whether the document has any usable text.
func (d Document) Empty() bool {
	return strings.TrimSpace(d.content) == ""
}

// Selector reduces a policy document to question-relevant text through
// the policy-context capability.
type Selector struct {
	caps capability.Capabilities
}

// NewSelector creates a selector over the given capabilities.
func NewSelector(caps capability.Capabilities) *Selector {
	return &Selector{caps: caps}
}

// SelectContext returns the policy text relevant to query. An empty
// document short-circuits without a model call, and any empty or failed
// selection falls back to the full document, so the result is always
// derived from the document rather than invented.
func (s *Selector) SelectContext(ctx context.Context, query string, doc Document) string {
	if doc.Empty() {
		return ""
	}
	selected, err := s.caps.SelectPolicyContext(ctx, query, doc.FullText())
	if err != nil || strings.TrimSpace(selected) == "" {
		return doc.FullText()
	}
	return selected
}
