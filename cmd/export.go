package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/client"
	"github.com/iksnae/medisnap/internal/export"
	"github.com/spf13/cobra"
)

var (
	format       string
	outputPath   string
	remoteFormat string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export an interpretation and its chat",
	Long: `Export an interpretation with its chat thread as jsonl, md, yaml or json.

With --remote the service renders the export instead (pdf, csv or excel).
Output goes to stdout unless --output names a file or directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		ctx := cmd.Context()
		cl, err := newClient()
		if err != nil {
			return err
		}

		if remoteFormat != "" {
			return exportRemote(cmd, cl, id)
		}

		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store := internal.NewSessionStore(cl, internal.WithLanguage(cfg.Language))
		defer store.Close()
		chat := internal.NewChatSync(cl)
		defer chat.Close()

		var st internal.ChatState
		err = internal.ShowProgressWithSteps(ctx, []internal.ProgressStep{
			{
				Message: fmt.Sprintf("Loading %s", id),
				Fn: func() error {
					_, err := settle(ctx, store, func() error { return store.Open(ctx, id) })
					return err
				},
			},
			{
				Message: "Loading chat thread",
				Fn: func() error {
					var err error
					st, err = loadHistory(cmd, chat, id)
					return err
				},
			},
		})
		if err != nil {
			return err
		}
		report := export.NewReport(store.Snapshot(), st)

		w, path, closeFn, err := openOutput(cmd, id, exporter.Extension())
		if err != nil {
			return &internal.ExportError{Format: format, Path: path, Err: err}
		}
		if err := exporter.Export(report, w); err != nil {
			_ = closeFn()
			return &internal.ExportError{Format: format, Path: path, Err: err}
		}
		if err := closeFn(); err != nil {
			return &internal.ExportError{Format: format, Path: path, Err: err}
		}
		if path != "" {
			internal.PrintSuccess(fmt.Sprintf("Exported %s (%d messages) to %s", id, len(report.Messages), path))
		}
		return nil
	},
}

func exportRemote(cmd *cobra.Command, cl *client.Client, id string) error {
	w, path, closeFn, err := openOutput(cmd, id, client.ExportExtension(remoteFormat))
	if err != nil {
		return &internal.ExportError{Format: remoteFormat, Path: path, Err: err}
	}
	var n int64
	err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Downloading %s export", remoteFormat), func() error {
		var err error
		n, err = cl.DownloadExport(cmd.Context(), id, remoteFormat, w)
		return err
	})
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		if path != "" {
			_ = os.Remove(path)
		}
		return &internal.ExportError{Format: remoteFormat, Path: path, Err: err}
	}
	if path != "" {
		internal.PrintSuccess(fmt.Sprintf("Downloaded %d bytes to %s", n, path))
	}
	return nil
}

// openOutput resolves --output. Empty or "-" is stdout; a directory gets
// interpretation-<id>.<ext> inside it.
func openOutput(cmd *cobra.Command, id, ext string) (io.Writer, string, func() error, error) {
	if outputPath == "" || outputPath == "-" {
		return cmd.OutOrStdout(), "", func() error { return nil }, nil
	}
	path := outputPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, fmt.Sprintf("interpretation-%s.%s", id, ext))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, path, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, path, nil, err
	}
	return f, path, f.Close, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format: jsonl, md, yaml, json")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory (default stdout)")
	exportCmd.Flags().StringVar(&remoteFormat, "remote", "", "Download a service-rendered export: pdf, csv, excel")
}
