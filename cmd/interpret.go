package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/capture"
	"github.com/iksnae/medisnap/internal/export"
	"github.com/spf13/cobra"
)

var (
	useCamera       bool
	cameraDevice    string
	interpretChat   bool
	interpretFormat string
)

var interpretCmd = &cobra.Command{
	Use:   "interpret [file]",
	Short: "Interpret a medical document",
	Long: `Upload a JPG, PNG or PDF (up to 10MB) and show its plain-language
interpretation. With --camera a single photo is taken instead; the camera is
released as soon as the photo is captured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if useCamera && len(args) > 0 {
			return errors.New("pass either a file or --camera, not both")
		}
		var exporter export.Exporter
		if interpretFormat != "" {
			var err error
			if exporter, err = export.NewExporter(interpretFormat); err != nil {
				return err
			}
		}

		doc, err := captureDocument(ctx, args)
		if err != nil {
			return err
		}
		internal.LogDebug("Captured %s (%s, %d bytes, %s)", doc.Name(), doc.MIMEType(), doc.Size(), doc.Fingerprint()[:12])

		cl, err := newClient()
		if err != nil {
			return err
		}
		store := internal.NewSessionStore(cl, internal.WithLanguage(cfg.Language))
		defer store.Close()

		res, err := awaitResult(ctx, fmt.Sprintf("Interpreting %s", doc.Name()), store, func() error {
			return store.Submit(ctx, doc)
		})
		if err != nil {
			return err
		}

		if exporter != nil {
			return exporter.Export(export.NewReport(store.Snapshot(), internal.ChatState{}), out)
		}
		renderResult(out, res)

		if !interpretChat {
			fmt.Fprintln(out, hintStyle.Render(fmt.Sprintf("💡 Ask about it with `medisnap chat %s`", res.ID)))
			return nil
		}
		chat := internal.NewChatSync(cl, internal.WithChatLanguage(cfg.Language))
		defer chat.Close()
		return runChat(ctx, cmd.InOrStdin(), out, chat, res.ID)
	},
}

// captureDocument reads the file argument, or takes a photo with --camera.
func captureDocument(ctx context.Context, args []string) (*internal.CapturedDocument, error) {
	if !useCamera {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return capture.FromFile(path)
	}

	device := cfg.Camera.Device
	if cameraDevice != "" {
		device = cameraDevice
	}
	var doc *internal.CapturedDocument
	err := internal.ShowProgress(ctx, fmt.Sprintf("Capturing from %s", device), func() error {
		var err error
		doc, err = capture.CaptureOnce(ctx, &capture.FFmpegDevice{Path: device},
			capture.WithConstraints(capture.Constraints{
				FacingMode: capture.FacingEnvironment,
				Width:      cfg.Camera.Width,
				Height:     cfg.Camera.Height,
			}),
			capture.WithPreviewTimeout(cfg.Camera.PreviewTimeout))
		return err
	})
	return doc, err
}

// awaitResult runs start behind a spinner and waits for the session to
// settle.
func awaitResult(ctx context.Context, message string, store *internal.SessionStore, start func() error) (*internal.InterpretationResult, error) {
	var res *internal.InterpretationResult
	err := internal.ShowProgress(ctx, message, func() error {
		var err error
		res, err = settle(ctx, store, start)
		return err
	})
	return res, err
}

// settle runs start and waits for the session to leave its in-flight states.
// A failed session is returned as its classified error.
func settle(ctx context.Context, store *internal.SessionStore, start func() error) (*internal.InterpretationResult, error) {
	if err := start(); err != nil {
		return nil, err
	}
	sess, err := store.Wait(ctx, internal.Settled)
	if err != nil {
		return nil, err
	}
	if sess.Status == internal.StatusFailed {
		return nil, sess.Err
	}
	if sess.Result == nil {
		return nil, fmt.Errorf("session ended in state %s without a result", sess.Status)
	}
	return sess.Result, nil
}

func init() {
	rootCmd.AddCommand(interpretCmd)
	interpretCmd.Flags().BoolVar(&useCamera, "camera", false, "Take a photo with the camera instead of reading a file")
	interpretCmd.Flags().StringVar(&cameraDevice, "device", "", "Camera device (default from config, /dev/video0)")
	interpretCmd.Flags().BoolVar(&interpretChat, "chat", false, "Continue into a chat about the result")
	interpretCmd.Flags().StringVarP(&interpretFormat, "format", "f", "", "Print the result as json, jsonl, yaml or md instead")
}
