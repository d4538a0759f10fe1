package mockserver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/medisnap/internal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreResultRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := labResults("r1")
	res.CreatedAt = "2026-01-01T00:00:00Z"
	require.NoError(t, s.SaveResult(ctx, res))

	got, err := s.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, res, got)

	// cached copies are independent of the caller's value
	got.DocumentType = "changed"
	again, err := s.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Lab Results", again.DocumentType)

	_, err = s.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGetResultFromDatabase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveResult(ctx, medicalDocument("r1")))

	s.cache.Flush()
	got, err := s.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Medical Document", got.DocumentType)
	assert.Equal(t, 0.85, got.Confidence)
}

func TestStoreListResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		res := labResults(fmt.Sprintf("lab-%d", i))
		if i%2 == 0 {
			res = medicalDocument(fmt.Sprintf("doc-%d", i))
		}
		res.CreatedAt = fmt.Sprintf("2026-01-0%dT00:00:00Z", i)
		require.NoError(t, s.SaveResult(ctx, res))
	}

	items, total, err := s.ListResults(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 5)
	assert.Equal(t, "lab-5", items[0].ID, "newest first")

	items, total, err = s.ListResults(ctx, ListFilter{Type: "medical document"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "doc-4", items[0].ID)

	items, total, err = s.ListResults(ctx, ListFilter{Search: "Hemoglobin"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)

	items, total, err = s.ListResults(ctx, ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Equal(t, "lab-3", items[0].ID)
}

func TestStoreHistoryAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveResult(ctx, labResults("r1")))

	require.NoError(t, s.AppendMessage(ctx, "r1", internal.HistoryEntry{ID: "m1", Role: "user", Content: "What is WBC?"}))
	require.NoError(t, s.AppendMessage(ctx, "r1", internal.HistoryEntry{ID: "m2", Role: "assistant", Content: "White blood cells."}))
	assert.Error(t, s.AppendMessage(ctx, "r1", internal.HistoryEntry{ID: "m1", Role: "user", Content: "dup"}))

	history, err := s.History(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m1", history[0].ID)
	assert.Equal(t, "m2", history[1].ID)
	assert.NotEmpty(t, history[0].CreatedAt)

	require.NoError(t, s.DeleteResult(ctx, "r1"))
	_, err = s.GetResult(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
	history, err = s.History(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, s.DeleteResult(ctx, "r1"), ErrNotFound)
}

func TestDemoAnswer(t *testing.T) {
	res := labResults("r1")
	tests := []struct {
		question string
		contains string
	}{
		{"What does this mean?", "lab report"},
		{"What are the risks?", "immediate risk"},
		{"What next?", "- Review results with your healthcare provider"},
		{"what is hemoglobin", "binds to oxygen"},
		{"tell me a joke", "specific value or term"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Contains(t, demoAnswer(res, tt.question), tt.contains)
		})
	}
}
