package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/capture"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var healthcheckDetails bool

// checkResult is the outcome of one health check. Optional checks only warn.
type checkResult struct {
	Name     string
	Detail   string
	Err      error
	Optional bool
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration, service reachability and camera availability",
	Long: `Check the health of medisnap by verifying:
  • Configuration is valid
  • The interpretation service answers /health
  • A camera device and ffmpeg are available (optional)

The checks run concurrently. The command fails only when a required check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 MediSnap Health Check"))
		fmt.Fprintln(out)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		results := runHealthChecks(ctx)
		return reportHealth(out, results)
	},
}

// runHealthChecks runs every check concurrently. Each check records its
// own outcome, so the group never short-circuits.
func runHealthChecks(ctx context.Context) []checkResult {
	results := make([]checkResult, 3)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r := checkResult{Name: "Configuration", Detail: "defaults and environment"}
		if cfg.Source != "" {
			r.Detail = cfg.Source
		}
		r.Err = cfg.Validate()
		results[0] = r
		return nil
	})
	g.Go(func() error {
		r := checkResult{Name: "Interpretation service", Detail: cfg.API.BaseURL}
		cl, err := newClient()
		if err == nil {
			start := time.Now()
			err = cl.Health(gctx)
			if err == nil {
				r.Detail += fmt.Sprintf(" (%s)", time.Since(start).Round(time.Millisecond))
			}
		}
		r.Err = err
		results[1] = r
		return nil
	})
	g.Go(func() error {
		device := &capture.FFmpegDevice{Path: cfg.Camera.Device}
		results[2] = checkResult{
			Name:     "Camera",
			Detail:   cfg.Camera.Device,
			Err:      device.Probe(),
			Optional: true,
		}
		return nil
	})

	_ = g.Wait()
	return results
}

func reportHealth(out io.Writer, results []checkResult) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err == nil:
			fmt.Fprintln(out, successStyle.Render("✅ "+r.Name))
		case r.Optional:
			fmt.Fprintln(out, warningStyle.Render("⚠️  "+r.Name+": ")+internal.UserMessage(r.Err))
		default:
			failed++
			fmt.Fprintln(out, errorStyle.Render("❌ "+r.Name+": ")+internal.UserMessage(r.Err))
		}
		if healthcheckDetails && r.Detail != "" {
			fmt.Fprintf(out, "   %s\n", r.Detail)
		}
	}
	fmt.Fprintln(out)

	if failed > 0 {
		fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
		return errors.New("health check failed")
	}
	fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
