package router

import (
	"context"
	"testing"

	"github.com/zen-systems/retailgate/pkg/adapter"
	"github.com/zen-systems/retailgate/pkg/capability"
	"github.com/zen-systems/retailgate/pkg/trace"
)

func TestDecisionPrecedence(t *testing.T) {
	cases := []struct {
		sql, policy, unknown bool
		want                 Decision
	}{
		{false, false, false, DecisionDocs},
		{false, false, true, DecisionUnknown},
		{false, true, false, DecisionDocs},
		{false, true, true, DecisionUnknown},
		{true, false, false, DecisionSQL},
		{true, false, true, DecisionUnknown},
		{true, true, false, DecisionHybrid},
		{true, true, true, DecisionUnknown},
	}

	for _, tc := range cases {
		c := Classification{RequiresSQL: tc.sql, RequiresPolicy: tc.policy, Unknown: tc.unknown}
		if got := c.Decision(); got != tc.want {
			t.Fatalf("decision(sql=%v policy=%v unknown=%v) = %s, want %s",
				tc.sql, tc.policy, tc.unknown, got, tc.want)
		}
	}
}

func TestKeywordDetector(t *testing.T) {
	d := NewKeywordDetector()
	for _, query := range []string{
		"What is the VIP policy?",
		"how do refunds work",
		"RESTOCKING fee amount",
		"shipping time to Gotham",
	} {
		if !d.Detect(query) {
			t.Fatalf("expected hit for %q", query)
		}
	}
	for _, query := range []string{"count all orders", "top products by revenue"} {
		if d.Detect(query) {
			t.Fatalf("unexpected hit for %q", query)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  What   is\tthe VIP policy?  "); got != "What is the VIP policy?" {
		t.Fatalf("normalize: %q", got)
	}
}

func newLogger() (*trace.Logger, *trace.Recorder) {
	recorder := trace.NewRecorder()
	return trace.NewLogger(recorder, "test"), recorder
}

func TestKeywordHitNeverImpliesSQL(t *testing.T) {
	script := &capability.Script{
		ClassifyReplies: []capability.ClassifyReply{
			{Result: capability.ClassifierResult{RequiresSQL: false, RequiresPolicy: false}},
		},
	}
	r := New(script)
	log, _ := newLogger()

	result, err := r.Route(context.Background(), log, "What is the VIP policy?")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !result.KeywordPolicyHit {
		t.Fatalf("expected keyword hit")
	}
	if result.RequiresSQL {
		t.Fatalf("keyword hit must not imply SQL")
	}
	if !result.RequiresPolicy || result.Decision != DecisionDocs {
		t.Fatalf("expected docs decision, got %+v", result)
	}
}

func TestMergeCombinesLLMAndKeywords(t *testing.T) {
	script := &capability.Script{
		ClassifyReplies: []capability.ClassifyReply{
			{Result: capability.ClassifierResult{RequiresSQL: true, RequiresPolicy: false, Explanation: "needs a join"}},
		},
	}
	r := New(script)
	log, _ := newLogger()

	result, err := r.Route(context.Background(), log, "List VIP customers")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Decision != DecisionHybrid {
		t.Fatalf("expected hybrid (keyword policy + llm sql), got %s", result.Decision)
	}
	if result.Source != SourceMerged {
		t.Fatalf("expected merged source, got %s", result.Source)
	}
}

func TestUnknownWins(t *testing.T) {
	script := &capability.Script{
		ClassifyReplies: []capability.ClassifyReply{
			{Result: capability.ClassifierResult{RequiresSQL: true, RequiresPolicy: true, Unknown: true}},
		},
	}
	r := New(script)
	log, _ := newLogger()

	result, err := r.Route(context.Background(), log, "asdf qwerty refund")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Decision != DecisionUnknown {
		t.Fatalf("expected unknown, got %s", result.Decision)
	}
}

func TestSkipKeywordDetection(t *testing.T) {
	script := &capability.Script{
		ClassifyReplies: []capability.ClassifyReply{
			{Result: capability.ClassifierResult{RequiresSQL: false, RequiresPolicy: false}},
		},
	}
	r := New(script, SkipKeywordDetection())
	log, _ := newLogger()

	result, err := r.Route(context.Background(), log, "What is the VIP policy?")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.KeywordPolicyHit || result.RequiresPolicy {
		t.Fatalf("keyword stage should be skipped: %+v", result)
	}
}

func TestClassifierUnavailableSurfaces(t *testing.T) {
	script := &capability.Script{
		ClassifyReplies: []capability.ClassifyReply{
			{Err: adapter.ErrUnavailable},
		},
	}
	r := New(script)
	log, _ := newLogger()

	_, err := r.Route(context.Background(), log, "count orders")
	if err == nil {
		t.Fatalf("expected error when classifier is unreachable")
	}
	if !adapter.IsUnavailable(err) {
		t.Fatalf("unavailable condition lost: %v", err)
	}
}

func TestEveryClassificationIsLogged(t *testing.T) {
	script := &capability.Script{
		ClassifyReplies: []capability.ClassifyReply{
			{Result: capability.ClassifierResult{RequiresSQL: true, RequiresPolicy: false}},
		},
	}
	r := New(script)
	log, recorder := newLogger()

	if _, err := r.Route(context.Background(), log, "count orders"); err != nil {
		t.Fatalf("route: %v", err)
	}

	var found bool
	for _, event := range recorder.Events() {
		if event.Stage == "classify_query" {
			found = true
			if event.Fields["query"] != "count orders" {
				t.Fatalf("classification log missing query text: %v", event.Fields)
			}
			if event.Fields["decision"] != "sql" {
				t.Fatalf("classification log missing decision: %v", event.Fields)
			}
		}
	}
	if !found {
		t.Fatalf("classify_query stage not logged; stages: %v", recorder.Stages())
	}
}

func TestIsNonsense(t *testing.T) {
	for _, query := range []string{"", "   ", "!!!???", "---", "¿¡"} {
		if !IsNonsense(query) {
			t.Fatalf("expected nonsense for %q", query)
		}
	}
	for _, query := range []string{"orders", "vip?", "top 5", "a"} {
		if IsNonsense(query) {
			t.Fatalf("unexpected nonsense for %q", query)
		}
	}
}

func TestNonsenseSkipsClassifier(t *testing.T) {
	script := &capability.Script{}
	r := New(script)

	result, err := r.Route(context.Background(), trace.NewLogger(trace.Nop{}, "test"), "!!!???")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Decision != DecisionUnknown || !result.Unknown {
		t.Fatalf("expected unknown, got %+v", result)
	}
	if result.Source != SourceHeuristic {
		t.Fatalf("expected heuristic source, got %s", result.Source)
	}
	if got := script.CallCount(capability.CapClassify); got != 0 {
		t.Fatalf("classifier must not run for nonsense input, saw %d calls", got)
	}
}
