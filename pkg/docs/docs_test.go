package docs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zen-systems/retailgate/pkg/capability"
)

const policyText = "VIP customers spent over $1000 in the last 12 months.\nReturns accepted within 30 days."

func TestLoadMissingFile(t *testing.T) {
	doc := Load(filepath.Join(t.TempDir(), "nope.md"))
	if !doc.Empty() {
		t.Fatalf("missing file should load as empty")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.md")
	if err := os.WriteFile(path, []byte(policyText), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc := Load(path)
	if doc.FullText() != policyText {
		t.Fatalf("unexpected content: %q", doc.FullText())
	}
}

func TestSelectContextEmptyDocumentSkipsModel(t *testing.T) {
	script := &capability.Script{}
	selector := NewSelector(script)

	got := selector.SelectContext(context.Background(), "vip?", NewDocument("   "))
	if got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	if script.CallCount(capability.CapPolicyContext) != 0 {
		t.Fatalf("model called for empty document")
	}
}

func TestSelectContextUsesSelection(t *testing.T) {
	script := &capability.Script{
		ContextReplies: []capability.TextReply{{Text: "VIP customers spent over $1000 in the last 12 months."}},
	}
	selector := NewSelector(script)

	got := selector.SelectContext(context.Background(), "vip?", NewDocument(policyText))
	if got != "VIP customers spent over $1000 in the last 12 months." {
		t.Fatalf("unexpected selection: %q", got)
	}
}

func TestSelectContextFallsBackOnEmpty(t *testing.T) {
	script := &capability.Script{
		ContextReplies: []capability.TextReply{{Text: "  "}},
	}
	selector := NewSelector(script)

	got := selector.SelectContext(context.Background(), "vip?", NewDocument(policyText))
	if got != policyText {
		t.Fatalf("expected full-document fallback, got %q", got)
	}
}

func TestSelectContextFallsBackOnError(t *testing.T) {
	script := &capability.Script{
		ContextReplies: []capability.TextReply{{Err: errors.New("boom")}},
	}
	selector := NewSelector(script)

	got := selector.SelectContext(context.Background(), "vip?", NewDocument(policyText))
	if got != policyText {
		t.Fatalf("expected full-document fallback, got %q", got)
	}
}
