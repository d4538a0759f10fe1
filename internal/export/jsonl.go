package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/medisnap/internal"
)

// JSONLExporter writes a header line with the result, then one line per chat
// message.
type JSONLExporter struct{}

type jsonlRecord struct {
	Type      string                        `json:"type"`
	Result    *internal.InterpretationResult `json:"result,omitempty"`
	ID        string                        `json:"id,omitempty"`
	Role      internal.Role                 `json:"role,omitempty"`
	Content   string                        `json:"content,omitempty"`
	Origin    internal.Origin               `json:"origin,omitempty"`
	CreatedAt string                        `json:"created_at,omitempty"`
}

func (e *JSONLExporter) Export(report *Report, w io.Writer) error {
	if err := requireResult("jsonl", report); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(jsonlRecord{Type: "result", Result: report.Result}); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	for _, msg := range report.Messages {
		rec := jsonlRecord{
			Type:      "message",
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			Origin:    msg.Origin,
			CreatedAt: msg.CreatedAt,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
