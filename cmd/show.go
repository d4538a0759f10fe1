package cmd

import (
	"fmt"

	"github.com/iksnae/medisnap/internal"
	"github.com/spf13/cobra"
)

var showHistory bool

// showCmd re-opens a past interpretation
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a past interpretation",
	Long:  `Fetch an interpretation by id and display it. With --history the chat thread is shown too.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		cl, err := newClient()
		if err != nil {
			return err
		}
		store := internal.NewSessionStore(cl, internal.WithLanguage(cfg.Language))
		defer store.Close()

		res, err := awaitResult(ctx, fmt.Sprintf("Loading %s", args[0]), store, func() error {
			return store.Open(ctx, args[0])
		})
		if err != nil {
			return err
		}
		renderResult(out, res)

		if !showHistory {
			return nil
		}
		chat := internal.NewChatSync(cl)
		defer chat.Close()
		st, err := loadHistory(cmd, chat, res.ID)
		if err != nil {
			return err
		}
		if len(st.Messages) == 0 {
			fmt.Fprintln(out, hintStyle.Render("No questions asked yet."))
			return nil
		}
		fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("Chat (%d messages)", len(st.Messages))))
		fmt.Fprintln(out)
		md := newMarkdownRenderer(out)
		for _, msg := range st.Messages {
			renderMessage(out, md, msg)
		}
		return nil
	},
}

// loadHistory binds chat to resultID and waits for the thread to load.
func loadHistory(cmd *cobra.Command, chat *internal.ChatSync, resultID string) (internal.ChatState, error) {
	ctx := cmd.Context()
	if _, err := chat.Bind(ctx, resultID); err != nil {
		return internal.ChatState{}, err
	}
	return chat.Wait(ctx, internal.Idle)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showHistory, "history", false, "Also show the chat thread")
}
