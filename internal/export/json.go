package export

import (
	"encoding/json"
	"io"
)

// JSONExporter writes the whole report, pretty-printed
type JSONExporter struct{}

func (e *JSONExporter) Export(report *Report, w io.Writer) error {
	if err := requireResult("json", report); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
