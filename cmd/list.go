package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/client"
	"github.com/spf13/cobra"
)

var (
	listType   string
	listSearch string
	listPage   int
	listLimit  int
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"recent"},
	Short:   "List past interpretations",
	Long:    `List past interpretations, newest first. Filter by document type or free text.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}
		var page *client.ListPage
		err = internal.ShowProgress(cmd.Context(), "Loading interpretations", func() error {
			var err error
			page, err = cl.List(cmd.Context(), client.ListParams{
				Type:   listType,
				Search: listSearch,
				Page:   listPage,
				Limit:  listLimit,
			})
			return err
		})
		if err != nil {
			return err
		}
		displayResults(cmd.OutOrStdout(), page, time.Now())
		return nil
	},
}

func displayResults(out io.Writer, page *client.ListPage, now time.Time) {
	if len(page.Items) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No interpretations found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Showing %d of %d interpretation(s)", len(page.Items), page.Total)))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Type")+"\t"+titleStyle.Render("Confidence")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, res := range page.Items {
		docType := res.DocumentType
		if docType == "" {
			docType = "Unknown"
		}
		if len(docType) > 40 {
			docType = docType[:37] + "..."
		}
		created := formatCreated(res.CreatedAt, now)
		if created == "" {
			created = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(res.ID),
			docType,
			countStyle.Render(fmt.Sprintf("%.0f%%", res.Confidence*100)),
			dateStyle.Render(created))
	}
	_ = w.Flush()
	fmt.Fprintln(out)

	if page.Next != "" {
		fmt.Fprintln(out, idStyle.Render(fmt.Sprintf("More results: --page %d", max(listPage, 1)+1)))
	}
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the ID with `medisnap show <id>` or `medisnap chat <id>`"))
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an interpretation and its chat thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}
		if err := cl.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Deleted "+args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	listCmd.Flags().StringVar(&listType, "type", "", "Only this document type (e.g. \"Lab Results\")")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Free-text search")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Results per page")
}
