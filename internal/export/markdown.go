package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/medisnap/internal"
)

// MarkdownExporter renders a readable report: summary, sections with terms,
// warnings, next steps and then the chat.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(report *Report, w io.Writer) error {
	if err := requireResult("md", report); err != nil {
		return err
	}
	r := report.Result
	var b strings.Builder

	title := r.DocumentType
	if title == "" {
		title = "Medical Document"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Result:** %s  \n", r.ID)
	fmt.Fprintf(&b, "**Confidence:** %.0f%%  \n", r.Confidence*100)
	if r.ProcessingTimeMS > 0 {
		fmt.Fprintf(&b, "**Processing time:** %s  \n", r.ProcessingDuration())
	}
	if r.Language != "" {
		fmt.Fprintf(&b, "**Language:** %s  \n", r.Language)
	}
	b.WriteString("\n")

	if r.Interpretation.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", escapeMarkdown(r.Interpretation.Summary))
	}

	if len(r.Interpretation.Sections) > 0 {
		b.WriteString("## Sections\n\n")
		for i, s := range r.Interpretation.Sections {
			fmt.Fprintf(&b, "### Section %d\n\n", i+1)
			if s.Original != "" {
				fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(s.Original, "\n", "\n> "))
			}
			fmt.Fprintf(&b, "%s\n\n", escapeMarkdown(s.Simplified))
			for _, t := range s.Terms {
				if t.Importance != "" {
					fmt.Fprintf(&b, "- **%s** (%s): %s\n", t.Term, t.Importance, t.Definition)
				} else {
					fmt.Fprintf(&b, "- **%s**: %s\n", t.Term, t.Definition)
				}
			}
			if len(s.Terms) > 0 {
				b.WriteString("\n")
			}
		}
	}

	writeList(&b, "Medical Terms", r.Interpretation.MedicalTerms)
	writeList(&b, "Warnings", r.Interpretation.Warnings)
	writeList(&b, "Next Steps", r.Interpretation.NextSteps)

	if len(report.Messages) > 0 {
		b.WriteString("---\n\n## Chat\n\n")
		for i, msg := range report.Messages {
			fmt.Fprintf(&b, "**%s:**\n\n%s\n\n", roleLabel(msg.Role), escapeMarkdown(msg.Content))
			if i < len(report.Messages)-1 {
				b.WriteString("---\n\n")
			}
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return &internal.ExportError{Format: "md", Err: err}
	}
	return nil
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func roleLabel(r internal.Role) string {
	if r == internal.RoleUser {
		return "You"
	}
	return "Assistant"
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}
	return strings.Join(lines, "\n")
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
