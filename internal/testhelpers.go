package internal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// CreateTestDocument creates a small document of the given MIME type
func CreateTestDocument(name, mimeType string, size int) *CapturedDocument {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return NewCapturedDocument(name, mimeType, SourceFile, data)
}

// CreateTestResult creates a complete lab results interpretation
func CreateTestResult(id string) *InterpretationResult {
	return &InterpretationResult{
		ID:               id,
		DocumentType:     "Lab Results",
		Confidence:       0.92,
		ProcessingTimeMS: 1250,
		Language:         "en",
		Interpretation: Interpretation{
			Summary: "Your blood test results are mostly within normal ranges.",
			Sections: []Section{
				{
					Original:   "WBC: 7.2 K/uL (4.5-11.0)",
					Simplified: "Your white blood cell count is normal.",
					Terms: []Term{
						{Term: "WBC", Definition: "White blood cells that fight infection", Importance: ImportanceHigh},
					},
				},
				{
					Original:   "HGB: 13.5 g/dL (12.0-16.0)",
					Simplified: "Your hemoglobin is in the normal range.",
				},
			},
			Warnings:  []string{"Discuss any symptoms with your doctor."},
			NextSteps: []string{"Schedule a follow-up in 6 months."},
		},
	}
}

// CreateTestHistory creates a two-message history
func CreateTestHistory() []HistoryEntry {
	return []HistoryEntry{
		{ID: "h1", Role: "user", Content: "What is WBC?"},
		{ID: "h2", Role: "assistant", Content: "White blood cells."},
	}
}

// FakeClient is an InterpretationClient driven by per-operation funcs. Nil
// funcs succeed with canned data. Call counts are safe to read concurrently.
type FakeClient struct {
	SubmitFunc  func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error)
	FetchFunc   func(ctx context.Context, id string) (*InterpretationResult, error)
	HistoryFunc func(ctx context.Context, resultID string) ([]HistoryEntry, error)
	AskFunc     func(ctx context.Context, resultID, question, language string) (Answer, error)

	SubmitCalls  atomic.Int32
	FetchCalls   atomic.Int32
	HistoryCalls atomic.Int32
	AskCalls     atomic.Int32

	mu        sync.Mutex
	questions []string
}

var _ InterpretationClient = (*FakeClient)(nil)

func (f *FakeClient) Submit(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
	n := f.SubmitCalls.Add(1)
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, doc, language)
	}
	return CreateTestResult(fmt.Sprintf("result-%d", n)), nil
}

func (f *FakeClient) FetchResult(ctx context.Context, id string) (*InterpretationResult, error) {
	f.FetchCalls.Add(1)
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, id)
	}
	return CreateTestResult(id), nil
}

func (f *FakeClient) FetchHistory(ctx context.Context, resultID string) ([]HistoryEntry, error) {
	f.HistoryCalls.Add(1)
	if f.HistoryFunc != nil {
		return f.HistoryFunc(ctx, resultID)
	}
	return nil, nil
}

func (f *FakeClient) Ask(ctx context.Context, resultID, question, language string) (Answer, error) {
	f.AskCalls.Add(1)
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if f.AskFunc != nil {
		return f.AskFunc(ctx, resultID, question, language)
	}
	return Answer{Kind: AnswerObject, Value: "answer to " + question}, nil
}

// Questions returns every question received, in order.
func (f *FakeClient) Questions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.questions...)
}

// Gate blocks fake operations until released, so tests can observe
// in-flight states and deliver completions in a chosen order.
type Gate struct {
	ch   chan struct{}
	once sync.Once
}

// NewGate returns a closed-until-released gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Wait blocks until Release or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release lets every waiter proceed.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.ch) })
}
