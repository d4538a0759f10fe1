package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/client"
	"github.com/iksnae/medisnap/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWithChat(t *testing.T, m *testutil.MockServer, id string) {
	t.Helper()
	m.Seed(t, internal.CreateTestResult(id))
	for _, h := range internal.CreateTestHistory() {
		h.ID = id + "-" + h.ID
		require.NoError(t, m.Store.AppendMessage(t.Context(), id, h))
	}
}

func TestShowCommand(t *testing.T) {
	m := testutil.StartMockServer(t)
	seedWithChat(t, m, "lab-1")
	m.Seed(t, internal.CreateTestResult("lab-2"))

	t.Run("result only", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "show", "lab-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Lab Results")
		assert.Contains(t, out, "ID: lab-1")
		assert.Contains(t, out, "white blood cell count is normal")
		assert.NotContains(t, out, "Chat (")
	})

	t.Run("with history", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "show", "--history", "lab-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Chat (2 messages)")
		assert.Contains(t, out, "What is WBC?")
		assert.Contains(t, out, "White blood cells.")
	})

	t.Run("empty history", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "show", "--history", "lab-2")
		require.NoError(t, err)
		assert.Contains(t, out, "No questions asked yet.")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := executeCommand(t, "", "--api-url", m.URL, "show", "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, internal.KindFetchResultFailed)
	})

	t.Run("requires id", func(t *testing.T) {
		_, err := executeCommand(t, "", "--api-url", m.URL, "show")
		require.Error(t, err)
	})
}

func TestChatCommand(t *testing.T) {
	m := testutil.StartMockServer(t)
	seedWithChat(t, m, "lab-1")

	out, err := executeCommand(t, "What is WBC exactly?\n\n/suggest\n/quit\n", "--api-url", m.URL, "chat", "lab-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Chat about lab-1")
	assert.Contains(t, out, "White blood cells.", "existing thread is shown")
	assert.NotContains(t, out, "(not from the service)")
	assert.Contains(t, out, "Try asking:", "/suggest lists the questions")

	history, err := m.Store.History(t.Context(), "lab-1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "What is WBC exactly?", history[2].Content)
	assert.Contains(t, history[3].Content, "White blood cells that fight infection")
}

func TestChatCommandEndOfInput(t *testing.T) {
	m := testutil.StartMockServer(t)
	m.Seed(t, internal.CreateTestResult("lab-1"))

	out, err := executeCommand(t, "", "--api-url", m.URL, "chat", "lab-1")
	require.NoError(t, err)
	assert.Contains(t, out, "What does this mean?")
}

func TestListCommand(t *testing.T) {
	m := testutil.StartMockServer(t)
	for _, id := range []string{"a", "b", "c"} {
		res := internal.CreateTestResult(id)
		res.CreatedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)
		m.Seed(t, res)
	}
	other := internal.CreateTestResult("rx")
	other.DocumentType = "Prescription"
	m.Seed(t, other)

	t.Run("all", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "list")
		require.NoError(t, err)
		assert.Contains(t, out, "Showing 4 of 4 interpretation(s)")
		assert.Contains(t, out, "Prescription")
		assert.Contains(t, out, "92%")
		assert.NotContains(t, out, "More results")
	})

	t.Run("paged", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "list", "-n", "2")
		require.NoError(t, err)
		assert.Contains(t, out, "Showing 2 of 4 interpretation(s)")
		assert.Contains(t, out, "More results: --page 2")
	})

	t.Run("by type", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "recent", "--type", "prescription")
		require.NoError(t, err)
		assert.Contains(t, out, "Showing 1 of 1 interpretation(s)")
		assert.Contains(t, out, "rx")
	})

	t.Run("no match", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "list", "--search", "no-such-text")
		require.NoError(t, err)
		assert.Contains(t, out, "No interpretations found")
	})
}

func TestDeleteCommand(t *testing.T) {
	m := testutil.StartMockServer(t)
	seedWithChat(t, m, "lab-1")

	out, err := executeCommand(t, "", "--api-url", m.URL, "delete", "lab-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted lab-1")

	_, err = m.Store.GetResult(t.Context(), "lab-1")
	assert.Error(t, err)

	_, err = executeCommand(t, "", "--api-url", m.URL, "delete", "lab-1")
	assert.ErrorIs(t, err, internal.KindFetchResultFailed)
}

func TestExportCommand(t *testing.T) {
	m := testutil.StartMockServer(t)
	seedWithChat(t, m, "lab-1")

	t.Run("json to stdout", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", m.URL, "export", "-f", "json", "lab-1")
		require.NoError(t, err)
		assert.Contains(t, out, `"session_id"`)
		assert.Contains(t, out, `"document_type": "Lab Results"`)
		assert.Contains(t, out, "What is WBC?")
	})

	t.Run("markdown into directory", func(t *testing.T) {
		dir := testutil.CreateTempDir(t)
		_, err := executeCommand(t, "", "--api-url", m.URL, "export", "-o", dir, "lab-1")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "interpretation-lab-1.md"))
		require.NoError(t, err)
		md := string(data)
		assert.True(t, strings.HasPrefix(md, "# Lab Results"))
		assert.Contains(t, md, "## Chat")
		assert.Contains(t, md, "**You:**")
	})

	t.Run("yaml to file", func(t *testing.T) {
		path := filepath.Join(testutil.CreateTempDir(t), "nested", "out.yaml")
		_, err := executeCommand(t, "", "--api-url", m.URL, "export", "-f", "yaml", "-o", path, "lab-1")
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "document_type: Lab Results")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := executeCommand(t, "", "--api-url", m.URL, "export", "-f", "docx", "lab-1")
		require.Error(t, err)
	})

	t.Run("remote csv", func(t *testing.T) {
		dir := testutil.CreateTempDir(t)
		_, err := executeCommand(t, "", "--api-url", m.URL, "export", "--remote", "csv", "-o", dir, "lab-1")
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(dir, "interpretation-lab-1.csv"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "kind,section,original,simplified,term,definition,importance"))
	})

	t.Run("remote pdf is not rendered", func(t *testing.T) {
		dir := testutil.CreateTempDir(t)
		_, err := executeCommand(t, "", "--api-url", m.URL, "export", "--remote", "pdf", "-o", dir, "lab-1")
		require.Error(t, err)
		var exportErr *internal.ExportError
		assert.ErrorAs(t, err, &exportErr)
		assert.NoFileExists(t, filepath.Join(dir, "interpretation-lab-1.pdf"))
	})
}

func TestHealthcheckCommand(t *testing.T) {
	t.Run("service up", func(t *testing.T) {
		m := testutil.StartMockServer(t)
		out, err := executeCommand(t, "", "--api-url", m.URL, "healthcheck", "--details")
		require.NoError(t, err)
		assert.Contains(t, out, "✅ Configuration")
		assert.Contains(t, out, "✅ Interpretation service")
		assert.Contains(t, out, "Health check passed")
		assert.Contains(t, out, m.URL)
	})

	t.Run("service down", func(t *testing.T) {
		out, err := executeCommand(t, "", "--api-url", closedURL(t), "healthcheck")
		require.Error(t, err)
		assert.Contains(t, out, "❌ Interpretation service")
		assert.Contains(t, out, "Health check failed")
	})
}

func TestReportHealthOptionalOnlyWarns(t *testing.T) {
	var b strings.Builder
	err := reportHealth(&b, []checkResult{
		{Name: "Configuration"},
		{Name: "Camera", Err: internal.NewError(internal.KindDeviceUnavailable, "camera", "Camera access is not available on this device.", nil), Optional: true},
	})
	require.NoError(t, err)
	assert.Contains(t, b.String(), "⚠️  Camera")
	assert.Contains(t, b.String(), "Camera access is not available on this device.")
}

func TestServeRejectsAnswerShape(t *testing.T) {
	_, err := executeCommand(t, "", "serve", "--answer-shape", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported answer shape")
}

func TestDisplayResultsEmpty(t *testing.T) {
	var b strings.Builder
	displayResults(&b, &client.ListPage{}, time.Now())
	assert.Contains(t, b.String(), "No interpretations found")
	assert.NotContains(t, b.String(), "Tip")
}
