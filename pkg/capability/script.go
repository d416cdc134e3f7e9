package capability

import (
	"context"
	"fmt"
	"sync"
)

// TextReply is one scripted text response.
type TextReply struct {
	Text string
	Err  error
}

// ClassifyReply is one scripted classification response.
type ClassifyReply struct {
	Result ClassifierResult
	Err    error
}

// Script is a deterministic Capabilities implementation for tests.
// Each method consumes replies in order; running past the script is a
// test bug and fails loudly.
type Script struct {
	mu sync.Mutex

	ClassifyReplies []ClassifyReply
	ContextReplies  []TextReply
	GenerateReplies []TextReply
	CorrectReplies  []TextReply
	AnswerReplies   []TextReply

	calls []string
}

// Calls returns the capability invocations in order.
func (s *Script) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times the named capability was invoked.
func (s *Script) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, call := range s.calls {
		if call == name {
			n++
		}
	}
	return n
}

// Classify implements Capabilities.
func (s *Script) Classify(_ context.Context, _ string) (ClassifierResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, CapClassify)
	if len(s.ClassifyReplies) == 0 {
		return ClassifierResult{}, fmt.Errorf("script exhausted: %s", CapClassify)
	}
	reply := s.ClassifyReplies[0]
	s.ClassifyReplies = s.ClassifyReplies[1:]
	return reply.Result, reply.Err
}

// SelectPolicyContext implements Capabilities.
func (s *Script) SelectPolicyContext(_ context.Context, _, _ string) (string, error) {
	return s.pop(CapPolicyContext, &s.ContextReplies)
}

// GenerateSQL implements Capabilities.
func (s *Script) GenerateSQL(_ context.Context, _, _, _ string) (string, error) {
	return s.pop(CapGenerateSQL, &s.GenerateReplies)
}

// CorrectSQL implements Capabilities.
func (s *Script) CorrectSQL(_ context.Context, _, _, _ string) (string, error) {
	return s.pop(CapCorrectSQL, &s.CorrectReplies)
}

// AnswerFromDocs implements Capabilities.
func (s *Script) AnswerFromDocs(_ context.Context, _, _ string) (string, error) {
	return s.pop(CapAnswerFromDocs, &s.AnswerReplies)
}

func (s *Script) pop(name string, replies *[]TextReply) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if len(*replies) == 0 {
		return "", fmt.Errorf("script exhausted: %s", name)
	}
	reply := (*replies)[0]
	*replies = (*replies)[1:]
	return reply.Text, reply.Err
}
