package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithLoop runs the store on a loop shared with other components. The caller
// owns the loop and closes it.
func WithLoop(l *Loop) StoreOption {
	return func(s *SessionStore) { s.loop = l }
}

// WithLanguage sets the language used for submissions.
func WithLanguage(tag string) StoreOption {
	return func(s *SessionStore) { s.language = tag }
}

// WithIDGenerator overrides how session ids are minted.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *SessionStore) { s.newID = fn }
}

// SessionStore owns the current InterpretationSession. Commands are executed
// on its loop; network calls run on their own goroutines and post their
// completions back as events.
type SessionStore struct {
	client   InterpretationClient
	loop     *Loop
	ownLoop  bool
	newID    func() string
	language string
	ops      sync.WaitGroup
	snap     atomic.Pointer[InterpretationSession]

	// loop-owned
	session InterpretationSession
	ctx     context.Context
	cancel  context.CancelFunc
	subs    *subscribers[InterpretationSession]
	closed  bool
}

// NewSessionStore creates a store with a fresh idle session.
func NewSessionStore(client InterpretationClient, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		client:   client,
		newID:    uuid.NewString,
		language: "en",
		subs:     newSubscribers[InterpretationSession](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loop == nil {
		s.loop = NewLoop(0)
		s.ownLoop = true
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.session = InterpretationSession{ID: s.newID(), Status: StatusIdle, Language: s.language}
	snap := s.session
	s.snap.Store(&snap)
	return s
}

// do runs fn on the loop, mapping a closed store to ErrClosed.
func (s *SessionStore) do(ctx context.Context, fn func() error) error {
	var err error
	if lerr := s.loop.Do(ctx, func() {
		if s.closed {
			err = ErrClosed
			return
		}
		err = fn()
	}); lerr != nil {
		return lerr
	}
	return err
}

// apply runs an event through Reduce and publishes on acceptance. Loop only.
func (s *SessionStore) apply(ev Event) bool {
	next, ok := Reduce(s.session, ev)
	if !ok {
		L().Debug("session event ignored",
			zap.String("session", s.session.ID),
			zap.String("event_session", ev.sessionID()),
			zap.Stringer("status", s.session.Status),
			zap.String("event", fmt.Sprintf("%T", ev)))
		return false
	}
	s.session = next
	s.publish()
	return true
}

func (s *SessionStore) publish() {
	snap := s.session
	s.snap.Store(&snap)
	s.subs.publish(snap)
}

// post delivers an async completion. Completions arriving after Close are
// dropped.
func (s *SessionStore) post(ev Event) {
	s.loop.Post(func() {
		if s.closed {
			return
		}
		s.apply(ev)
	})
}

// Select retains doc as the current session's document.
func (s *SessionStore) Select(ctx context.Context, doc *CapturedDocument) error {
	return s.do(ctx, func() error {
		if err := s.rejectBusy(); err != nil {
			return err
		}
		s.apply(documentSelected{session: s.session.ID, doc: doc})
		return nil
	})
}

func (s *SessionStore) rejectBusy() error {
	switch {
	case s.session.Status.InFlight():
		return ErrSubmitInFlight
	case s.session.Status == StatusReady:
		return ErrSessionComplete
	}
	return nil
}

// Submit validates and uploads doc. A nil doc resubmits the retained
// document, which is how a failed submission is retried. The call returns
// once the submission has started; observe completion with Wait or Subscribe.
func (s *SessionStore) Submit(ctx context.Context, doc *CapturedDocument) error {
	return s.do(ctx, func() error {
		if err := s.rejectBusy(); err != nil {
			return err
		}
		if doc == nil {
			doc = s.session.Document
		}
		if v := Validate(doc); !v.Valid {
			return v.Err()
		}

		sessionID := s.session.ID
		lang := s.session.Language
		s.apply(submitStarted{session: sessionID, doc: doc, language: lang})
		L().Info("submitting document",
			zap.String("session", sessionID),
			zap.String("name", doc.Name()),
			zap.String("mime", doc.MIMEType()),
			zap.Int64("size", doc.Size()),
			zap.String("fingerprint", doc.Fingerprint()))

		opCtx := s.ctx
		s.ops.Add(1)
		go func() {
			defer s.ops.Done()
			s.runSubmit(opCtx, sessionID, doc, lang)
		}()
		return nil
	})
}

func (s *SessionStore) runSubmit(ctx context.Context, sessionID string, doc *CapturedDocument, lang string) {
	res, err := s.client.Submit(ctx, doc, lang)
	if err == nil && (res == nil || res.ID == "") {
		err = errors.New("response carries no result id")
	}
	if err != nil {
		s.post(operationFailed{session: sessionID, err: classify(KindSubmitFailed, "submit", err)})
		return
	}
	s.post(submitAccepted{session: sessionID, resultID: res.ID})

	if !res.Complete() {
		res, err = s.client.FetchResult(ctx, res.ID)
		if err != nil {
			s.post(operationFailed{session: sessionID, err: classify(KindFetchResultFailed, "fetch", err)})
			return
		}
		if res == nil {
			s.post(operationFailed{session: sessionID, err: NewError(KindFetchResultFailed, "fetch", "", errors.New("empty result"))})
			return
		}
	}
	res.ClampConfidence()
	s.post(resultReady{session: sessionID, result: res})
}

// Open starts a fresh session that re-opens an existing result by id.
func (s *SessionStore) Open(ctx context.Context, resultID string) error {
	if resultID == "" {
		return NewError(KindFetchResultFailed, "fetch", "result id is required", nil)
	}
	return s.do(ctx, func() error {
		s.startNew()
		sessionID := s.session.ID
		s.apply(openStarted{session: sessionID, resultID: resultID})

		opCtx := s.ctx
		s.ops.Add(1)
		go func() {
			defer s.ops.Done()
			res, err := s.client.FetchResult(opCtx, resultID)
			if err == nil && res == nil {
				err = errors.New("empty result")
			}
			if err != nil {
				s.post(operationFailed{session: sessionID, err: classify(KindFetchResultFailed, "fetch", err)})
				return
			}
			res.ClampConfidence()
			s.post(resultReady{session: sessionID, result: res})
		}()
		return nil
	})
}

// StartNewSession discards the current session. Outstanding operations are
// cancelled and their completions ignored.
func (s *SessionStore) StartNewSession(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.startNew()
		return nil
	})
}

func (s *SessionStore) startNew() {
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	prev := s.session.ID
	s.apply(sessionStarted{id: s.newID(), language: s.language})
	L().Debug("session started", zap.String("session", s.session.ID), zap.String("previous", prev))
}

// SetLanguage changes the language for this and later sessions.
func (s *SessionStore) SetLanguage(ctx context.Context, tag string) error {
	return s.do(ctx, func() error {
		s.language = tag
		s.apply(languageSet{session: s.session.ID, language: tag})
		return nil
	})
}

// Snapshot returns the latest published session.
func (s *SessionStore) Snapshot() InterpretationSession {
	return *s.snap.Load()
}

// Subscribe returns a channel that always holds the most recent snapshot.
// Intermediate snapshots may be skipped. The cancel func releases it.
func (s *SessionStore) Subscribe() (<-chan InterpretationSession, func()) {
	var (
		id int
		ch chan InterpretationSession
	)
	err := s.do(context.Background(), func() error {
		id, ch = s.subs.add(s.session)
		return nil
	})
	if err != nil {
		ch = make(chan InterpretationSession)
		close(ch)
		return ch, func() {}
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.loop.Post(func() { s.subs.remove(id) })
		})
	}
}

// Wait blocks until pred accepts a snapshot or ctx ends.
func (s *SessionStore) Wait(ctx context.Context, pred func(InterpretationSession) bool) (InterpretationSession, error) {
	ch, cancel := s.Subscribe()
	defer cancel()
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return s.Snapshot(), ErrClosed
			}
			if pred(snap) {
				return snap, nil
			}
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Settled matches snapshots with no operation in flight.
func Settled(sess InterpretationSession) bool {
	return !sess.Status.InFlight()
}

// Close cancels outstanding work, waits for it and releases subscribers.
func (s *SessionStore) Close() {
	_ = s.loop.Do(context.Background(), func() { s.cancel() })
	s.ops.Wait()
	_ = s.loop.Do(context.Background(), func() {
		if s.closed {
			return
		}
		s.closed = true
		s.subs.closeAll()
	})
	if s.ownLoop {
		s.loop.Close()
	}
}

// classify tags err with kind unless it already carries a classification.
func classify(kind ErrorKind, op string, err error) error {
	if KindOf(err) != "" {
		return err
	}
	return NewError(kind, op, "", err)
}
