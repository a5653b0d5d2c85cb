package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-dev/scribe/internal/config"
	"github.com/scribe-dev/scribe/internal/testutil"
)

type harness struct {
	cfgPath string
	dataDir string
	src     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	root := t.TempDir()
	h := &harness{
		cfgPath: filepath.Join(root, "config.yaml"),
		dataDir: filepath.Join(root, "data"),
		src:     t.TempDir(),
	}
	cfg := config.DefaultConfig()
	cfg.DataDir = h.dataDir
	cfg.Transcriber.Command = "sh"
	cfg.Transcriber.Args = []string{"-c", "printf 'spoken words'", "{audio}"}
	cfg.Log.Level = "error"
	require.NoError(t, config.WriteConfig(h.cfgPath, cfg))
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "scribe %s\n%s", strings.Join(args, " "), out)
	return out
}

// sessionOf extracts the session id from "Added segNNN to session ID".
func sessionOf(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	return fields[len(fields)-1]
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "scribe", "config.yaml")
	dataDir := filepath.Join(root, "data")

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--config", cfgPath, "--data-dir", dataDir}, args...))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	out := run("init")
	assert.Contains(t, out, "Wrote config: "+cfgPath)
	assert.DirExists(t, filepath.Join(dataDir, "sessions"))

	cfg, err := config.ReadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir)

	out = run("init")
	assert.Contains(t, out, "Config already exists")
}

func TestAddShowAndNewSession(t *testing.T) {
	h := newHarness(t)

	first := sessionOf(t, h.mustRun(t, "add", "hello"))
	out := h.mustRun(t, "add", "world")
	assert.Equal(t, "Added seg002 to session "+first+"\n", out)

	assert.Equal(t, "hello\n\nworld\n", h.mustRun(t, "show"))
	assert.Equal(t, "hello\n\nworld\n", h.mustRun(t, "show", first))

	assert.Contains(t, h.mustRun(t, "new"), "Closed session "+first)
	second := sessionOf(t, h.mustRun(t, "add", "earth"))
	assert.NotEqual(t, first, second)

	list := h.mustRun(t, "list")
	assert.Contains(t, list, "  "+first+"    2 segment(s)")
	assert.Contains(t, list, "* "+second+"    1 segment(s)")

	assert.Contains(t, h.mustRun(t, "add", "   "), "Nothing to add")
}

func TestTranscribeAndRetranscribe(t *testing.T) {
	h := newHarness(t)
	a := testutil.WriteAudio(t, h.src, "a.wav")
	b := testutil.WriteAudio(t, h.src, "b.wav")

	out := h.mustRun(t, "transcribe", a, b)
	assert.Contains(t, out, "[SAVED seg001")
	assert.Contains(t, out, "[SAVED seg002")
	assert.Contains(t, out, "Done: 2/2")
	assert.NoFileExists(t, a, "audio is moved into the session")

	assert.Equal(t, "spoken words\n\nspoken words\n", h.mustRun(t, "show"))

	c := testutil.WriteAudio(t, h.src, "c.wav")
	h.mustRun(t, "add", "--audio", c, "rough", "draft")
	assert.Equal(t, "spoken words\n\nspoken words\n\nrough draft\n", h.mustRun(t, "show"))

	assert.Equal(t, "spoken words\n", h.mustRun(t, "retranscribe"))
	assert.Equal(t, "spoken words\n\nspoken words\n\nspoken words\n", h.mustRun(t, "show"))
}

func TestTranscribeNoSave(t *testing.T) {
	h := newHarness(t)
	a := testutil.WriteAudio(t, h.src, "a.wav")

	assert.Equal(t, "spoken words\n", h.mustRun(t, "transcribe", "--no-save", a))
	assert.FileExists(t, a)
	assert.Contains(t, h.mustRun(t, "list"), "No sessions found.")
}

func TestRetranscribeWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "retranscribe")
	assert.Error(t, err)
}

func TestRenameSearchAndExport(t *testing.T) {
	h := newHarness(t)
	id := sessionOf(t, h.mustRun(t, "add", "buy", "oat", "milk"))

	assert.Contains(t, h.mustRun(t, "rename", "Groceries"), `to "Groceries"`)

	out := h.mustRun(t, "search", "grocer")
	assert.Contains(t, out, id+"  Groceries")
	assert.Contains(t, out, "buy oat milk")
	assert.Contains(t, h.mustRun(t, "search", "plumber"), "No matching sessions.")

	dest := filepath.Join(t.TempDir(), "groceries.md")
	h.mustRun(t, "export", id, "--format", "md", "--out", dest)
	md := testutil.ReadFile(t, dest)
	assert.Contains(t, md, "# Groceries\n")
	assert.Contains(t, md, "buy oat milk\n")

	assert.Equal(t, "buy oat milk\n", h.mustRun(t, "export"))

	_, err := h.run(t, "export", "--format", "pdf")
	assert.Error(t, err)
}

func TestReindex(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "add", "alpha")
	files, err := filepath.Glob(filepath.Join(h.dataDir, "catalog.db*"))
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, os.Remove(f))
	}

	assert.Equal(t, "Indexed 1 session(s).\n", h.mustRun(t, "reindex"))
	assert.Contains(t, h.mustRun(t, "search", "alpha"), "alpha")
}

func TestPruneKeepsActiveSession(t *testing.T) {
	h := newHarness(t)
	old := sessionOf(t, h.mustRun(t, "add", "old"))
	h.mustRun(t, "new")
	current := sessionOf(t, h.mustRun(t, "add", "current"))

	out := h.mustRun(t, "prune", "--keep", "1", "--dry-run")
	assert.Contains(t, out, "Would remove "+old)
	assert.DirExists(t, filepath.Join(h.dataDir, "sessions", old))

	out = h.mustRun(t, "prune", "--keep", "1")
	assert.Contains(t, out, "Removed 1 session(s).")
	assert.NoDirExists(t, filepath.Join(h.dataDir, "sessions", old))
	assert.DirExists(t, filepath.Join(h.dataDir, "sessions", current))
}

func TestStatusAndEvents(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun(t, "status"), "No active session")

	id := sessionOf(t, h.mustRun(t, "add", "note"))
	status := h.mustRun(t, "status")
	assert.Contains(t, status, "Active:      "+id)
	assert.Contains(t, status, "Segments:    1")

	events := h.mustRun(t, "events", "--session", id)
	assert.Contains(t, events, "session_started session="+id)
	assert.Contains(t, events, "segment_added session="+id+" segment=1")
}

func TestStaleStateIsForgotten(t *testing.T) {
	h := newHarness(t)
	id := sessionOf(t, h.mustRun(t, "add", "gone soon"))
	require.NoError(t, os.RemoveAll(filepath.Join(h.dataDir, "sessions", id)))

	out := h.mustRun(t, "add", "fresh")
	assert.Contains(t, out, "Added seg001")
	assert.Equal(t, "fresh\n", h.mustRun(t, "show"))
}

func TestCorruptStateIsForgotten(t *testing.T) {
	h := newHarness(t)
	first := sessionOf(t, h.mustRun(t, "add", "hello"))
	statePath := filepath.Join(h.dataDir, "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{torn"), 0644))

	assert.Contains(t, h.mustRun(t, "status"), "No active session")

	out := h.mustRun(t, "add", "world")
	assert.Contains(t, out, "Added seg001")
	second := sessionOf(t, out)
	assert.Equal(t, "world\n", h.mustRun(t, "show"))
	assert.Equal(t, "hello\n", h.mustRun(t, "show", first))
	assert.Contains(t, testutil.ReadFile(t, statePath), second)

	require.NoError(t, os.WriteFile(statePath, []byte("{torn"), 0644))
	h.mustRun(t, "new")
	assert.Contains(t, h.mustRun(t, "status"), "No active session")
}

func TestSearchFindsWordsPastPreview(t *testing.T) {
	h := newHarness(t)
	id := sessionOf(t, h.mustRun(t, "add", strings.Repeat("filler ", 30)))
	h.mustRun(t, "add", "zebra")

	out := h.mustRun(t, "search", "zebra")
	assert.Contains(t, out, id)
	assert.NotContains(t, out, "No matching sessions.")
}

func TestTranscribeStopsAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	cfg, err := config.ReadConfig(h.cfgPath)
	require.NoError(t, err)
	cfg.Transcriber.Args = []string{"-c", "echo broken >&2; exit 3", "{audio}"}
	cfg.Transcriber.MaxFailures = 2
	require.NoError(t, config.WriteConfig(h.cfgPath, cfg))

	files := []string{
		testutil.WriteAudio(t, h.src, "a.wav"),
		testutil.WriteAudio(t, h.src, "b.wav"),
		testutil.WriteAudio(t, h.src, "c.wav"),
	}
	out, err := h.run(t, append([]string{"transcribe"}, files...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 file(s) not transcribed")
	assert.Contains(t, out, "[SKIPPED: after 2 consecutive failures] "+files[2])
	assert.Contains(t, out, "Done: 0/3, 2 failed, 1 skipped")
	for _, f := range files {
		assert.FileExists(t, f)
	}
}
