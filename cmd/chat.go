package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/medisnap/internal"
	"github.com/spf13/cobra"
)

var promptStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("62")).
	Bold(true)

var chatCmd = &cobra.Command{
	Use:   "chat <id>",
	Short: "Ask follow-up questions about an interpretation",
	Long: `Open the chat thread of an interpretation and ask questions about it.

Type a question and press enter. A number picks one of the suggested
questions, /suggest lists them again and /quit leaves.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}
		chat := internal.NewChatSync(cl, internal.WithChatLanguage(cfg.Language))
		defer chat.Close()
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), chat, args[0])
	},
}

// runChat is the question loop shared by chat and interpret --chat. It
// returns at end of input or on /quit.
func runChat(ctx context.Context, in io.Reader, out io.Writer, chat *internal.ChatSync, resultID string) error {
	if _, err := chat.Bind(ctx, resultID); err != nil {
		return err
	}
	st, err := chat.Wait(ctx, internal.Idle)
	if err != nil {
		return err
	}

	md := newMarkdownRenderer(out)
	fmt.Fprintln(out, headerStyle.Render("💬 Chat about "+resultID))
	for _, msg := range st.Messages {
		renderMessage(out, md, msg)
	}
	shown := len(st.Messages)
	if suggestions := st.Suggestions(); len(suggestions) > 0 {
		printSuggestions(out, suggestions)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/suggest":
			printSuggestions(out, internal.SuggestedQuestions)
			continue
		}
		if n, err := strconv.Atoi(question); err == nil && n >= 1 && n <= len(internal.SuggestedQuestions) {
			question = internal.SuggestedQuestions[n-1]
			fmt.Fprintln(out, hintStyle.Render(question))
		}

		if err := chat.Ask(ctx, question); err != nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  "+err.Error()))
			continue
		}
		err := internal.ShowProgress(ctx, "Thinking...", func() error {
			var err error
			st, err = chat.Wait(ctx, func(s internal.ChatState) bool { return !s.Pending })
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, msg := range st.Messages[shown:] {
			// the question was just typed; only print replies
			if msg.Role == internal.RoleAssistant {
				renderMessage(out, md, msg)
			}
		}
		shown = len(st.Messages)
	}
}

func printSuggestions(out io.Writer, suggestions []string) {
	fmt.Fprintln(out, hintStyle.Render("Try asking:"))
	for i, q := range suggestions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, q)
	}
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
