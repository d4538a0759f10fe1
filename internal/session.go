package internal

// Status is the lifecycle phase of an interpretation session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusProcessing
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusProcessing:
		return "processing"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// InFlight reports whether a network operation is outstanding.
func (s Status) InFlight() bool {
	return s == StatusSubmitting || s == StatusProcessing
}

// InterpretationSession is one attempt to interpret one document. ID is
// regenerated by every new session and is the staleness token for async
// completions.
type InterpretationSession struct {
	ID       string                `json:"id"`
	Status   Status                `json:"status"`
	Document *CapturedDocument     `json:"-"`
	ResultID string                `json:"result_id,omitempty"`
	Result   *InterpretationResult `json:"result,omitempty"`
	Err      error                 `json:"-"`
	Language string                `json:"language,omitempty"`
}

// Event drives Reduce. Implementations are the unexported event structs below.
type Event interface {
	sessionID() string
}

type documentSelected struct {
	session string
	doc     *CapturedDocument
}

type submitStarted struct {
	session  string
	doc      *CapturedDocument
	language string
}

type submitAccepted struct {
	session  string
	resultID string
}

type openStarted struct {
	session  string
	resultID string
}

type resultReady struct {
	session string
	result  *InterpretationResult
}

type operationFailed struct {
	session string
	err     error
}

type languageSet struct {
	session  string
	language string
}

type sessionStarted struct {
	id       string
	language string
}

func (e documentSelected) sessionID() string { return e.session }
func (e submitStarted) sessionID() string    { return e.session }
func (e submitAccepted) sessionID() string   { return e.session }
func (e openStarted) sessionID() string      { return e.session }
func (e resultReady) sessionID() string      { return e.session }
func (e operationFailed) sessionID() string  { return e.session }
func (e languageSet) sessionID() string      { return e.session }
func (e sessionStarted) sessionID() string   { return "" }

// Reduce applies ev to s and reports whether it was accepted. Rejected events
// leave s unchanged. An event bound to a different session id is stale.
func Reduce(s InterpretationSession, ev Event) (InterpretationSession, bool) {
	if started, ok := ev.(sessionStarted); ok {
		lang := started.language
		if lang == "" {
			lang = s.Language
		}
		return InterpretationSession{ID: started.id, Status: StatusIdle, Language: lang}, true
	}
	if ev.sessionID() != s.ID {
		return s, false
	}

	switch e := ev.(type) {
	case documentSelected:
		if s.Status != StatusIdle && s.Status != StatusFailed {
			return s, false
		}
		s.Document = e.doc
		s.Err = nil
		s.Status = StatusIdle
		return s, true

	case submitStarted:
		if s.Status != StatusIdle && s.Status != StatusFailed {
			return s, false
		}
		s.Document = e.doc
		if e.language != "" {
			s.Language = e.language
		}
		s.Err = nil
		s.Status = StatusSubmitting
		return s, true

	case submitAccepted:
		if s.Status != StatusSubmitting {
			return s, false
		}
		s.ResultID = e.resultID
		s.Status = StatusProcessing
		return s, true

	case openStarted:
		if s.Status != StatusIdle {
			return s, false
		}
		s.ResultID = e.resultID
		s.Status = StatusProcessing
		return s, true

	case resultReady:
		if !s.Status.InFlight() || e.result == nil {
			return s, false
		}
		s.Result = e.result
		s.ResultID = e.result.ID
		s.Err = nil
		s.Status = StatusReady
		return s, true

	case languageSet:
		s.Language = e.language
		return s, true

	case operationFailed:
		if !s.Status.InFlight() {
			return s, false
		}
		s.Err = e.err
		s.Status = StatusFailed
		return s, true
	}
	return s, false
}
