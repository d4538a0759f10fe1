package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/mockserver"
	"github.com/spf13/cobra"
)

var (
	serveAddr        string
	serveDB          string
	serveAnswerShape string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local mock interpretation service",
	Long: `Serve the interpretation API on a local address with canned demo results,
so every other command works without a backend:

  medisnap serve &
  medisnap --api-url http://127.0.0.1:8000/api interpret lab.png

Data lives in memory unless --db names a SQLite file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		db := cfg.Server.DB
		if cmd.Flags().Changed("db") {
			db = serveDB
		}
		shape := cfg.Server.AnswerShape
		if cmd.Flags().Changed("answer-shape") {
			shape = serveAnswerShape
		}
		switch mockserver.AnswerShape(shape) {
		case mockserver.ShapeObject, mockserver.ShapeString, mockserver.ShapeEnvelope, mockserver.ShapeEmpty:
		default:
			return fmt.Errorf("unsupported answer shape: %s (supported: object, string, envelope, empty)", shape)
		}

		store, err := mockserver.OpenStore(db)
		if err != nil {
			return err
		}
		defer store.Close()
		srv := mockserver.New(store, mockserver.WithAnswerShape(mockserver.AnswerShape(shape)))

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Listen(addr) }()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}
		internal.LogInfo("Shutting down mock service")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8000", "Listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", ":memory:", "SQLite database path")
	serveCmd.Flags().StringVar(&serveAnswerShape, "answer-shape", "object", "Chat answer encoding: object, string, envelope, empty")
}
