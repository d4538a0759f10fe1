package internal

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Replies shown when the service could not produce a usable answer.
const (
	FallbackEmptyAnswer = "Sorry, I received an empty response. Please try asking your question again."
	FallbackAskError    = "Sorry, I encountered an error. Please try again."
)

// SuggestedQuestions are offered while a transcript is empty.
var SuggestedQuestions = []string{
	"What does this mean?",
	"What are the risks?",
	"What next?",
}

// ChatToken identifies one binding of a chat to a result. Generation grows
// on every bind or reset, so a completion carrying an older token is stale
// even if the result id matches again.
type ChatToken struct {
	ResultID   string
	Generation uint64
}

// ChatState is a snapshot of a ChatSync.
type ChatState struct {
	Token    ChatToken
	Messages []Message
	Loading  bool
	Pending  bool
}

// Bound reports whether the chat owns a result.
func (c ChatState) Bound() bool {
	return c.Token.ResultID != ""
}

// Suggestions returns the starter questions while nothing has been said yet.
func (c ChatState) Suggestions() []string {
	if !c.Bound() || c.Loading || len(c.Messages) > 0 {
		return nil
	}
	return SuggestedQuestions
}

// ChatOption configures a ChatSync.
type ChatOption func(*ChatSync)

// WithChatLoop shares a loop with other components. The caller closes it.
func WithChatLoop(l *Loop) ChatOption {
	return func(c *ChatSync) { c.loop = l }
}

// WithChatLanguage sets the language questions are asked in.
func WithChatLanguage(tag string) ChatOption {
	return func(c *ChatSync) { c.language = tag }
}

// WithMessageIDs overrides how local message ids are minted.
func WithMessageIDs(fn func() string) ChatOption {
	return func(c *ChatSync) { c.newID = fn }
}

// ChatSync keeps the transcript of the chat thread attached to one result.
type ChatSync struct {
	client     InterpretationClient
	loop       *Loop
	ownLoop    bool
	language   string
	newID      func() string
	normalizer *Normalizer
	ops        sync.WaitGroup
	snap       atomic.Pointer[ChatState]

	// loop-owned
	token      ChatToken
	transcript *Transcript
	loading    bool
	pendingID  string
	ctx        context.Context
	cancel     context.CancelFunc
	subs       *subscribers[ChatState]
	closed     bool
}

// NewChatSync creates an unbound chat.
func NewChatSync(client InterpretationClient, opts ...ChatOption) *ChatSync {
	c := &ChatSync{
		client:     client,
		language:   "en",
		newID:      uuid.NewString,
		normalizer: NewNormalizer(),
		transcript: NewTranscript(),
		subs:       newSubscribers[ChatState](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loop == nil {
		c.loop = NewLoop(0)
		c.ownLoop = true
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.publish()
	return c
}

func (c *ChatSync) do(ctx context.Context, fn func() error) error {
	var err error
	if lerr := c.loop.Do(ctx, func() {
		if c.closed {
			err = ErrClosed
			return
		}
		err = fn()
	}); lerr != nil {
		return lerr
	}
	return err
}

func (c *ChatSync) state() ChatState {
	return ChatState{
		Token:    c.token,
		Messages: c.transcript.Messages(),
		Loading:  c.loading,
		Pending:  c.pendingID != "",
	}
}

func (c *ChatSync) publish() {
	st := c.state()
	c.snap.Store(&st)
	c.subs.publish(st)
}

// rebind moves to a new token, abandoning everything tied to the old one.
func (c *ChatSync) rebind(resultID string) ChatToken {
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.token = ChatToken{ResultID: resultID, Generation: c.token.Generation + 1}
	c.transcript.Clear()
	c.pendingID = ""
	c.loading = false
	return c.token
}

// Bind attaches the chat to resultID and loads its history. Binding the id
// already owned does nothing and reports false.
func (c *ChatSync) Bind(ctx context.Context, resultID string) (bool, error) {
	var changed bool
	err := c.do(ctx, func() error {
		if resultID == c.token.ResultID {
			return nil
		}
		changed = true
		tok := c.rebind(resultID)
		if resultID == "" {
			c.publish()
			return nil
		}
		c.loading = true
		c.publish()

		opCtx := c.ctx
		c.ops.Add(1)
		go func() {
			defer c.ops.Done()
			entries, err := c.client.FetchHistory(opCtx, resultID)
			c.post(func() { c.historyDone(tok, entries, err) })
		}()
		return nil
	})
	return changed, err
}

func (c *ChatSync) historyDone(tok ChatToken, entries []HistoryEntry, err error) {
	if tok != c.token {
		L().Debug("stale history discarded", zap.String("result", tok.ResultID), zap.Uint64("generation", tok.Generation))
		return
	}
	c.loading = false
	if err != nil {
		// history is optional; the thread starts empty
		L().Warn("chat history unavailable",
			zap.String("result", tok.ResultID),
			zap.Error(classify(KindHistoryFetchFailed, "history", err)))
		c.transcript.Clear()
		c.publish()
		return
	}
	msgs, dropped := NewDeduplicator().Deduplicate(c.normalizer.NormalizeHistory(entries))
	if dropped > 0 {
		L().Debug("duplicate history entries dropped", zap.Int("count", dropped))
	}
	c.transcript.Replace(msgs)
	c.publish()
}

// Reset unbinds the chat and destroys its transcript.
func (c *ChatSync) Reset(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.rebind("")
		c.publish()
		return nil
	})
}

// Ask appends the question optimistically and sends it. The reply arrives
// asynchronously; a failed or empty reply becomes a local assistant message.
func (c *ChatSync) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	return c.do(ctx, func() error {
		switch {
		case c.token.ResultID == "":
			return ErrNotBound
		case c.loading:
			return ErrHistoryLoading
		case c.pendingID != "":
			return ErrQuestionPending
		}

		userMsg := Message{ID: c.newID(), Role: RoleUser, Content: question, Origin: OriginOptimistic}
		if err := c.transcript.Append(userMsg); err != nil {
			return err
		}
		c.pendingID = userMsg.ID
		c.publish()

		tok := c.token
		opCtx := c.ctx
		lang := c.language
		c.ops.Add(1)
		go func() {
			defer c.ops.Done()
			answer, err := c.client.Ask(opCtx, tok.ResultID, question, lang)
			c.post(func() { c.answerDone(tok, userMsg.ID, answer, err) })
		}()
		return nil
	})
}

func (c *ChatSync) answerDone(tok ChatToken, userID string, answer Answer, err error) {
	if tok != c.token || userID != c.pendingID {
		L().Debug("stale answer discarded", zap.String("result", tok.ResultID), zap.Uint64("generation", tok.Generation))
		return
	}
	c.pendingID = ""

	reply := Message{ID: c.newID(), Role: RoleAssistant, Origin: OriginLocal}
	switch text, ok := answer.Text(); {
	case err != nil:
		L().Warn("question failed", zap.String("result", tok.ResultID), zap.Error(classify(KindAskFailed, "ask", err)))
		reply.Content = FallbackAskError
	case !ok:
		L().Warn("empty answer", zap.String("result", tok.ResultID), zap.Stringer("kind", answer.Kind), zap.Error(KindEmptyAnswer))
		reply.Content = FallbackEmptyAnswer
	default:
		c.transcript.SetOrigin(userID, OriginConfirmed)
		reply.Content = text
		reply.Origin = OriginConfirmed
	}
	if err := c.transcript.Append(reply); err != nil {
		L().Error("reply not recorded", zap.Error(err))
	}
	c.publish()
}

func (c *ChatSync) post(fn func()) {
	c.loop.Post(func() {
		if c.closed {
			return
		}
		fn()
	})
}

// SetLanguage changes the language of later questions.
func (c *ChatSync) SetLanguage(ctx context.Context, tag string) error {
	return c.do(ctx, func() error {
		c.language = tag
		return nil
	})
}

// Snapshot returns the latest published state.
func (c *ChatSync) Snapshot() ChatState {
	return *c.snap.Load()
}

// Subscribe returns a latest-wins channel of states.
func (c *ChatSync) Subscribe() (<-chan ChatState, func()) {
	var (
		id int
		ch chan ChatState
	)
	err := c.do(context.Background(), func() error {
		id, ch = c.subs.add(c.state())
		return nil
	})
	if err != nil {
		ch = make(chan ChatState)
		close(ch)
		return ch, func() {}
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.loop.Post(func() { c.subs.remove(id) })
		})
	}
}

// Wait blocks until pred accepts a state or ctx ends.
func (c *ChatSync) Wait(ctx context.Context, pred func(ChatState) bool) (ChatState, error) {
	ch, cancel := c.Subscribe()
	defer cancel()
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return c.Snapshot(), ErrClosed
			}
			if pred(st) {
				return st, nil
			}
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Idle matches states with nothing loading and no question outstanding.
func Idle(st ChatState) bool {
	return !st.Loading && !st.Pending
}

// Follow keeps the chat attached to whatever result store shows: a new
// session id resets the chat and a ready result binds it. It returns when
// ctx ends or either side closes.
func (c *ChatSync) Follow(ctx context.Context, store *SessionStore) error {
	ch, cancel := store.Subscribe()
	defer cancel()

	lastSession := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sess, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			if lastSession != "" && sess.ID != lastSession {
				if err := c.Reset(ctx); err != nil {
					return err
				}
			}
			lastSession = sess.ID
			if sess.Status == StatusReady && sess.Result != nil {
				if _, err := c.Bind(ctx, sess.Result.ID); err != nil {
					return err
				}
			}
		}
	}
}

// Close abandons outstanding work and releases subscribers.
func (c *ChatSync) Close() {
	_ = c.loop.Do(context.Background(), func() { c.cancel() })
	c.ops.Wait()
	_ = c.loop.Do(context.Background(), func() {
		if c.closed {
			return
		}
		c.closed = true
		c.subs.closeAll()
	})
	if c.ownLoop {
		c.loop.Close()
	}
}
