package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter exports reports in YAML format
type YAMLExporter struct{}

func (e *YAMLExporter) Export(report *Report, w io.Writer) error {
	if err := requireResult("yaml", report); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(report)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
