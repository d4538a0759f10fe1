package export

import (
	"fmt"
	"io"
	"time"

	"github.com/iksnae/medisnap/internal"
)

// Report is what gets exported: one interpretation and the chat about it.
type Report struct {
	SessionID  string                        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Result     *internal.InterpretationResult `json:"result" yaml:"result"`
	Messages   []internal.Message            `json:"messages" yaml:"messages"`
	ExportedAt time.Time                     `json:"exported_at" yaml:"exported_at"`
}

// NewReport builds a report from a session snapshot and a chat snapshot.
// Chat messages are only included when the chat belongs to the session's
// result.
func NewReport(session internal.InterpretationSession, chat internal.ChatState) *Report {
	r := &Report{
		SessionID:  session.ID,
		Result:     session.Result,
		ExportedAt: time.Now().UTC(),
	}
	if session.Result != nil && chat.Token.ResultID == session.Result.ID {
		r.Messages = chat.Messages
	}
	return r
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(report *Report, w io.Writer) error
	Extension() string
}

// Formats lists the local export formats.
var Formats = []string{"json", "jsonl", "yaml", "md"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}

func requireResult(format string, r *Report) error {
	if r == nil || r.Result == nil {
		return &internal.ExportError{Format: format, Err: fmt.Errorf("report has no result")}
	}
	return nil
}
