package capability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/zen-systems/retailgate/pkg/adapter"
	"github.com/zen-systems/retailgate/pkg/archive"
	"github.com/zen-systems/retailgate/pkg/trace"
)

func newTestClient(t *testing.T, mock *adapter.MockAdapter, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(
		map[string]adapter.Adapter{"mock": mock},
		Routes{Default: Route{Adapter: "mock", Model: "mock-1"}},
		opts...,
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClassifyParsesPayload(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		"tool routing classifier": `{"requires_sql": false, "requires_policy": true, "unknown": false, "explanation": "policy question"}`,
	}, "")
	client := newTestClient(t, mock)

	result, err := client.Classify(context.Background(), "What is the VIP policy?")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.RequiresSQL || !result.RequiresPolicy || result.Unknown {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Explanation != "policy question" {
		t.Fatalf("explanation lost: %q", result.Explanation)
	}
}

func TestClassifyFencedPayload(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		"tool routing classifier": "```json\n{\"requires_sql\": true, \"requires_policy\": true}\n```",
	}, "")
	client := newTestClient(t, mock)

	result, err := client.Classify(context.Background(), "List VIP customers")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !result.RequiresSQL || !result.RequiresPolicy {
		t.Fatalf("fenced payload not parsed: %+v", result)
	}
}

func TestClassifyMalformedFailsOpen(t *testing.T) {
	for _, content := range []string{
		"not json at all",
		`{"requires_policy": true}`,
		`{"unknown": true}`,
	} {
		mock := adapter.NewMockAdapterWithResponses(map[string]string{
			"tool routing classifier": content,
		}, "")
		client := newTestClient(t, mock)

		result, err := client.Classify(context.Background(), "count orders")
		if err != nil {
			t.Fatalf("classify(%q): %v", content, err)
		}
		if !result.RequiresSQL || result.RequiresPolicy || result.Unknown {
			t.Fatalf("expected fail-open default for %q, got %+v", content, result)
		}
	}
}

func TestClassifyUnavailableIsSurfaced(t *testing.T) {
	mock := adapter.NewMockAdapter()
	mock.Fail = adapter.ErrUnavailable
	client := newTestClient(t, mock)

	_, err := client.Classify(context.Background(), "count orders")
	if err == nil {
		t.Fatalf("expected error from dead provider")
	}
	if !adapter.IsUnavailable(err) {
		t.Fatalf("unavailable condition lost: %v", err)
	}
}

func TestGenerateSQLExtracts(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		"SQLite expert": "Sure:\n```sql\nSELECT name FROM products;\n```",
	}, "")
	client := newTestClient(t, mock)

	sqlText, err := client.GenerateSQL(context.Background(), "what products exist", "", "Table products (name TEXT)")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sqlText != "SELECT name FROM products;" {
		t.Fatalf("extraction failed: %q", sqlText)
	}
}

func TestCapabilityCallsTraced(t *testing.T) {
	recorder := trace.NewRecorder()
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		"compliance/policy assistant": "Returns are accepted within 30 days.",
	}, "")
	client := newTestClient(t, mock, WithSink(recorder))

	if _, err := client.AnswerFromDocs(context.Background(), "return window?", "Returns: 30 days."); err != nil {
		t.Fatalf("answer: %v", err)
	}

	events := recorder.Events()
	if len(events) != 1 || events[0].Stage != "capability_call" {
		t.Fatalf("expected one capability_call event, got %v", events)
	}
	if events[0].Fields["capability"] != CapAnswerFromDocs {
		t.Fatalf("wrong capability tag: %v", events[0].Fields)
	}
}

func TestRoutesResolvePerCapability(t *testing.T) {
	routes := Routes{
		Default: Route{Adapter: "openai", Model: "gpt-5.2-instant"},
		ByCapability: map[string]Route{
			CapGenerateSQL: {Adapter: "anthropic"},
		},
	}

	route := routes.resolve(CapGenerateSQL)
	if route.Adapter != "anthropic" || route.Model != "gpt-5.2-instant" {
		t.Fatalf("partial route not filled from default: %+v", route)
	}
	if r := routes.resolve(CapClassify); r.Adapter != "openai" {
		t.Fatalf("default route not used: %+v", r)
	}
}

func TestGeneratedArtifactsAreArchived(t *testing.T) {
	base := t.TempDir()
	arch, err := archive.NewStore(base)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		"SQLite expert": "SELECT 1",
	}, "")
	client := newTestClient(t, mock, WithArchive(arch))

	if _, err := client.GenerateSQL(context.Background(), "count orders", "", ""); err != nil {
		t.Fatalf("generate: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(base, "objects"))
	if err != nil {
		t.Fatalf("read objects: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one archived shard, got %d", len(entries))
	}
}
