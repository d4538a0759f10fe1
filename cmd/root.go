package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/client"
	"github.com/iksnae/medisnap/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	apiURL     string
	language   string
	logFile    string
	apiToken   string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// cfg is loaded once per invocation by the root PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "medisnap",
	Short: "Turn medical documents into plain language",
	Long: `Capture a medical document, send it to the interpretation service and
read the result in plain language. Ask follow-up questions about it.

Features:
  • Interpret JPG, PNG and PDF files, or a photo taken with a camera
  • Re-open past interpretations and their chat threads
  • Ask follow-up questions with markdown answers
  • Export results and chats (JSON, JSONL, YAML, Markdown)
  • Run a local mock service for offline use

Quick Start:
  medisnap interpret lab.pdf              # Interpret a file
  medisnap interpret --camera --chat      # Photograph a document and chat about it
  medisnap list                           # Past interpretations
  medisnap serve                          # Local mock service on 127.0.0.1:8000`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		internal.InitLogger(internal.LogOptions{File: cfg.Log.File, Verbose: cfg.Log.Verbose})
		if cfg.Source != "" {
			internal.LogDebug("Loaded config from %s", cfg.Source)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		internal.SyncLogger()
	},
}

// applyFlagOverrides lets explicitly passed flags win over file and env.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		c.API.BaseURL = apiURL
	}
	if flags.Changed("token") {
		c.API.Token = apiToken
	}
	if flags.Changed("language") {
		c.Language = language
	}
	if flags.Changed("log-file") {
		c.Log.File = logFile
	}
	if flags.Changed("verbose") {
		c.Log.Verbose = verbose
	}
}

// newClient builds an API client from the loaded config.
func newClient() (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(cfg.API.Timeout),
		client.WithUserAgent("medisnap/" + version),
	}
	if cfg.API.Token != "" {
		opts = append(opts, client.WithToken(cfg.API.Token))
	}
	return client.New(cfg.API.BaseURL, opts...)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", internal.UserMessage(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.medisnap.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Interpretation service base URL")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "", "Language tag for interpretations and answers")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Bearer token for the service")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
