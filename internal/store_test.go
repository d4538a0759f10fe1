package internal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitStatus(t *testing.T, s *SessionStore, want Status) InterpretationSession {
	t.Helper()
	snap, err := s.Wait(testContext(t), func(sess InterpretationSession) bool { return sess.Status == want })
	require.NoError(t, err, "waiting for %s, last status %s", want, snap.Status)
	return snap
}

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("session-%d", n.Add(1)) }
}

func TestStoreSubmitReachesReady(t *testing.T) {
	client := &FakeClient{}
	store := NewSessionStore(client, WithIDGenerator(sequentialIDs()), WithLanguage("es"))
	defer store.Close()

	doc := CreateTestDocument("lab.png", "image/png", 128)
	require.NoError(t, store.Submit(testContext(t), doc))

	snap := waitStatus(t, store, StatusReady)
	assert.Equal(t, "session-1", snap.ID)
	assert.Equal(t, "result-1", snap.ResultID)
	assert.Equal(t, "Lab Results", snap.Result.DocumentType)
	assert.Equal(t, "es", snap.Language)
	assert.EqualValues(t, 1, client.SubmitCalls.Load())
	assert.EqualValues(t, 0, client.FetchCalls.Load(), "complete submit response needs no fetch")
}

func TestStoreSubmitPassesThroughProcessing(t *testing.T) {
	gate := NewGate()
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			return &InterpretationResult{ID: "r7"}, nil
		},
		FetchFunc: func(ctx context.Context, id string) (*InterpretationResult, error) {
			if err := gate.Wait(ctx); err != nil {
				return nil, err
			}
			return CreateTestResult(id), nil
		},
	}
	store := NewSessionStore(client)
	defer store.Close()
	defer gate.Release()

	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))

	snap := waitStatus(t, store, StatusProcessing)
	assert.Equal(t, "r7", snap.ResultID)

	gate.Release()
	snap = waitStatus(t, store, StatusReady)
	assert.Equal(t, "r7", snap.Result.ID)
	assert.EqualValues(t, 1, client.FetchCalls.Load(), "incomplete response triggers exactly one fetch")
}

func TestStoreRejectsSecondSubmitWhileInFlight(t *testing.T) {
	gate := NewGate()
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			if err := gate.Wait(ctx); err != nil {
				return nil, err
			}
			return CreateTestResult("r1"), nil
		},
	}
	store := NewSessionStore(client)
	defer store.Close()
	defer gate.Release()

	doc := CreateTestDocument("lab.png", "image/png", 10)
	require.NoError(t, store.Submit(testContext(t), doc))
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, store.Submit(testContext(t), doc), ErrSubmitInFlight)
	}
	assert.ErrorIs(t, store.Select(testContext(t), doc), ErrSubmitInFlight)

	gate.Release()
	waitStatus(t, store, StatusReady)
	assert.EqualValues(t, 1, client.SubmitCalls.Load())

	assert.ErrorIs(t, store.Submit(testContext(t), doc), ErrSessionComplete)
	assert.EqualValues(t, 1, client.SubmitCalls.Load())
}

func TestStoreValidationFailureMakesNoNetworkCall(t *testing.T) {
	tests := []struct {
		name string
		doc  *CapturedDocument
		kind ErrorKind
	}{
		{"nothing retained", nil, KindNoFileSelected},
		{"too large", CreateTestDocument("big.pdf", "application/pdf", int(MaxDocumentSize)+1), KindFileTooLarge},
		{"bad type", CreateTestDocument("a.gif", "image/gif", 10), KindUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &FakeClient{}
			store := NewSessionStore(client)
			defer store.Close()

			before := store.Snapshot()
			err := store.Submit(testContext(t), tt.doc)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, before, store.Snapshot())
			assert.EqualValues(t, 0, client.SubmitCalls.Load())
		})
	}
}

func TestStoreFailureRetainsDocumentForRetry(t *testing.T) {
	var attempts atomic.Int32
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			if attempts.Add(1) == 1 {
				return nil, errors.New("503 service unavailable")
			}
			return CreateTestResult("r2"), nil
		},
	}
	store := NewSessionStore(client)
	defer store.Close()

	doc := CreateTestDocument("lab.jpg", "image/jpeg", 64)
	require.NoError(t, store.Submit(testContext(t), doc))

	failed := waitStatus(t, store, StatusFailed)
	assert.ErrorIs(t, failed.Err, KindSubmitFailed)
	assert.Same(t, doc, failed.Document)

	require.NoError(t, store.Submit(testContext(t), nil))
	ready := waitStatus(t, store, StatusReady)
	assert.Equal(t, "r2", ready.ResultID)
	assert.Equal(t, failed.ID, ready.ID, "retry stays in the same session")
	assert.EqualValues(t, 2, client.SubmitCalls.Load())
}

func TestStoreFetchFailure(t *testing.T) {
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			return &InterpretationResult{ID: "r3"}, nil
		},
		FetchFunc: func(ctx context.Context, id string) (*InterpretationResult, error) {
			return nil, errors.New("gateway timeout")
		},
	}
	store := NewSessionStore(client)
	defer store.Close()

	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))
	failed := waitStatus(t, store, StatusFailed)
	assert.ErrorIs(t, failed.Err, KindFetchResultFailed)
	assert.Equal(t, "r3", failed.ResultID)
}

func TestStoreDiscardsCompletionAfterNewSession(t *testing.T) {
	gate := NewGate()
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			// ignore ctx so the response still arrives after cancellation
			_ = gate.Wait(context.Background())
			return CreateTestResult("late"), nil
		},
	}
	store := NewSessionStore(client, WithIDGenerator(sequentialIDs()))

	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))
	waitStatus(t, store, StatusSubmitting)
	require.NoError(t, store.StartNewSession(testContext(t)))
	gate.Release()

	// Close waits for the late completion to be delivered and dropped.
	store.Close()
	snap := store.Snapshot()
	assert.Equal(t, "session-2", snap.ID)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Document)
}

func TestStoreNewSessionCancelsInFlightRequest(t *testing.T) {
	cancelled := make(chan struct{})
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	}
	store := NewSessionStore(client)
	defer store.Close()

	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))
	require.NoError(t, store.StartNewSession(testContext(t)))

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("abandoned request was not cancelled")
	}
	assert.Equal(t, StatusIdle, store.Snapshot().Status)
}

func TestStoreStartNewSessionFromReady(t *testing.T) {
	store := NewSessionStore(&FakeClient{}, WithIDGenerator(sequentialIDs()))
	defer store.Close()

	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))
	waitStatus(t, store, StatusReady)

	require.NoError(t, store.StartNewSession(testContext(t)))
	snap := store.Snapshot()
	assert.Equal(t, "session-2", snap.ID)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.ResultID)
}

func TestStoreOpen(t *testing.T) {
	client := &FakeClient{}
	store := NewSessionStore(client)
	defer store.Close()

	first := store.Snapshot().ID
	require.NoError(t, store.Open(testContext(t), "r9"))
	snap := waitStatus(t, store, StatusReady)

	assert.NotEqual(t, first, snap.ID)
	assert.Equal(t, "r9", snap.Result.ID)
	assert.EqualValues(t, 1, client.FetchCalls.Load())
	assert.EqualValues(t, 0, client.SubmitCalls.Load())
}

func TestStoreOpenFailure(t *testing.T) {
	client := &FakeClient{
		FetchFunc: func(ctx context.Context, id string) (*InterpretationResult, error) {
			return nil, errors.New("not found")
		},
	}
	store := NewSessionStore(client)
	defer store.Close()

	require.NoError(t, store.Open(testContext(t), "missing"))
	failed := waitStatus(t, store, StatusFailed)
	assert.ErrorIs(t, failed.Err, KindFetchResultFailed)

	assert.Error(t, store.Open(testContext(t), ""))
}

func TestStoreClampsConfidence(t *testing.T) {
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			r := CreateTestResult("r1")
			r.Confidence = 1.4
			return r, nil
		},
	}
	store := NewSessionStore(client)
	defer store.Close()

	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))
	assert.Equal(t, 1.0, waitStatus(t, store, StatusReady).Result.Confidence)
}

func TestStoreSelectThenSubmitRetained(t *testing.T) {
	client := &FakeClient{}
	store := NewSessionStore(client)
	defer store.Close()

	doc := CreateTestDocument("scan.pdf", "application/pdf", 10)
	require.NoError(t, store.Select(testContext(t), doc))
	assert.Same(t, doc, store.Snapshot().Document)

	require.NoError(t, store.Submit(testContext(t), nil))
	waitStatus(t, store, StatusReady)
}

func TestStoreSubscribeDeliversLatest(t *testing.T) {
	store := NewSessionStore(&FakeClient{}, WithIDGenerator(sequentialIDs()))
	defer store.Close()

	ch, cancel := store.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.StartNewSession(testContext(t)))
	}

	// the buffer holds one value, so only the newest survives
	snap := <-ch
	assert.Equal(t, "session-6", snap.ID)
}

func TestStoreSetLanguage(t *testing.T) {
	var got atomic.Value
	client := &FakeClient{
		SubmitFunc: func(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error) {
			got.Store(language)
			return CreateTestResult("r1"), nil
		},
	}
	store := NewSessionStore(client)
	defer store.Close()

	require.NoError(t, store.SetLanguage(testContext(t), "fr"))
	require.NoError(t, store.Submit(testContext(t), CreateTestDocument("lab.png", "image/png", 10)))
	waitStatus(t, store, StatusReady)
	assert.Equal(t, "fr", got.Load())

	require.NoError(t, store.StartNewSession(testContext(t)))
	assert.Equal(t, "fr", store.Snapshot().Language)
}

func TestStoreClosed(t *testing.T) {
	store := NewSessionStore(&FakeClient{})
	store.Close()
	store.Close()

	assert.ErrorIs(t, store.Submit(context.Background(), CreateTestDocument("a.png", "image/png", 1)), ErrClosed)
	_, err := store.Wait(context.Background(), func(InterpretationSession) bool { return false })
	assert.ErrorIs(t, err, ErrClosed)
}
