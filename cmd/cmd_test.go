package cmd

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/iksnae/medisnap/internal/mockserver"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var envKeys = []string{
	"MEDISNAP_API_URL", "NEXT_PUBLIC_API_URL", "MEDISNAP_API_TOKEN", "MEDISNAP_TIMEOUT",
	"MEDISNAP_LANGUAGE", "MEDISNAP_CAMERA_DEVICE", "MEDISNAP_CAMERA_WIDTH", "MEDISNAP_CAMERA_HEIGHT",
	"MEDISNAP_LOG_FILE", "MEDISNAP_VERBOSE", "MEDISNAP_SERVE_ADDR", "MEDISNAP_SERVE_DB",
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// between Execute calls on the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the CLI with args against an isolated home directory
// and environment, feeding stdin and capturing stdout+stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "version flag", args: []string{"--version"}, want: "dev (commit: unknown"},
		{name: "help flag", args: []string{"--help"}, want: "medisnap interpret lab.pdf"},
		{name: "unknown command", args: []string{"nonexistent-command"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"interpret", "show", "chat", "list", "delete", "export", "serve", "healthcheck"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q is not registered", name)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config", "api-url", "language", "log-file", "token"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("global flag --%s missing", name)
		}
	}
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := executeCommand(t, "", "--api-url", "not a url", "list")
	if err == nil || !strings.Contains(err.Error(), "api.base_url") {
		t.Fatalf("expected a config validation error, got %v", err)
	}
}

func TestMissingConfigFileFails(t *testing.T) {
	_, err := executeCommand(t, "", "--config", "/nonexistent/medisnap.yaml", "list")
	if err == nil {
		t.Fatal("expected an error for a missing --config file")
	}
}

var mockserverFilterAll = mockserver.ListFilter{}

// closedURL returns an API URL on a port nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "http://" + addr + "/api"
}
