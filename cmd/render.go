package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/medisnap/internal"
)

const wrapWidth = 80

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)

	originalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			Padding(0, 2)

	termStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	importanceStyles = map[internal.Importance]lipgloss.Style{
		internal.ImportanceHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		internal.ImportanceMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		internal.ImportanceLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func renderResult(w io.Writer, res *internal.InterpretationResult) {
	title := res.DocumentType
	if title == "" {
		title = "Medical Document"
	}
	fmt.Fprintln(w, headerStyle.Render("📄 "+title))

	meta := []string{
		fmt.Sprintf("Confidence: %.0f%%", res.Confidence*100),
		fmt.Sprintf("ID: %s", res.ID),
	}
	if res.ProcessingTimeMS > 0 {
		meta = append(meta, fmt.Sprintf("Processed in %s", res.ProcessingDuration()))
	}
	if created := formatCreated(res.CreatedAt, time.Now()); created != "" {
		meta = append(meta, created)
	}
	fmt.Fprintln(w, metaStyle.Render(strings.Join(meta, " • ")))
	fmt.Fprintln(w)

	interp := res.Interpretation
	if interp.Summary != "" {
		fmt.Fprintln(w, sectionStyle.Render("Summary"))
		fmt.Fprintln(w, contentStyle.Render(wrapText(interp.Summary, wrapWidth)))
		fmt.Fprintln(w)
	}

	for i, s := range interp.Sections {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Section %d", i+1)))
		if s.Original != "" {
			fmt.Fprintln(w, originalStyle.Render(wrapText(s.Original, wrapWidth)))
		}
		fmt.Fprintln(w, contentStyle.Render(wrapText(s.Simplified, wrapWidth)))
		for _, t := range s.Terms {
			line := "  • " + termStyle.Render(t.Term)
			if style, ok := importanceStyles[t.Importance]; ok {
				line += " " + style.Render("("+string(t.Importance)+")")
			}
			fmt.Fprintln(w, line+": "+t.Definition)
		}
		fmt.Fprintln(w)
	}

	renderList(w, "⚠️  Warnings", interp.Warnings, warningStyle)
	renderList(w, "Next steps", interp.NextSteps, successStyle)
}

func renderList(w io.Writer, heading string, items []string, style lipgloss.Style) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, style.Render(heading))
	for _, item := range items {
		fmt.Fprintln(w, "  • "+item)
	}
	fmt.Fprintln(w)
}

// newMarkdownRenderer picks a styled renderer on a terminal and a plain one
// otherwise.
func newMarkdownRenderer(w io.Writer) *glamour.TermRenderer {
	style := glamour.WithStandardStyle("notty")
	if internal.IsTerminal(w) {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrapWidth))
	if err != nil {
		internal.LogDebug("markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

func renderMessage(w io.Writer, md *glamour.TermRenderer, msg internal.Message) {
	switch msg.Role {
	case internal.RoleUser:
		fmt.Fprintln(w, userMessageStyle.Render("👤 You"))
		fmt.Fprintln(w, contentStyle.Render(wrapText(msg.Content, wrapWidth)))
	default:
		label := "🤖 Assistant"
		if msg.Origin == internal.OriginLocal {
			label += " " + hintStyle.Render("(not from the service)")
		}
		fmt.Fprintln(w, assistantMessageStyle.Render(label))
		fmt.Fprintln(w, renderMarkdown(md, msg.Content))
	}
	fmt.Fprintln(w)
}

func renderMarkdown(md *glamour.TermRenderer, text string) string {
	if md != nil {
		if out, err := md.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return contentStyle.Render(wrapText(text, wrapWidth))
}

// formatCreated renders an RFC 3339 stamp relative to now.
func formatCreated(stamp string, now time.Time) string {
	if stamp == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	t = t.Local()
	now = now.Local()
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	switch {
	case y1 == y2 && m1 == m2 && d1 == d2:
		return t.Format("Today 15:04")
	case now.Sub(t) < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case y1 == y2:
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02")
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			switch {
			case currentLine == "":
				currentLine = word
			case len(currentLine)+len(word)+1 > width:
				wrapped = append(wrapped, currentLine)
				currentLine = word
			default:
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}
