package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/observability"
	"github.com/rahul/crazyagent/internal/session"
	"github.com/rahul/crazyagent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const launcherTree = `
installed: [com.whatsapp]
root:
  text: Home
  children:
    - text: WhatsApp
      clickable: true
`

func writeTree(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(launcherTree), 0o644))
	return path
}

// executeRoot runs the CLI with args against a missing config file so
// defaults apply.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	base := []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "--provider", "memory", "--tree", ""}
	rootCmd.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
	planJSON = false
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"plan", "run", "repl", "serve"} {
		assert.Contains(t, names, want)
	}
}

func TestPlanCmd(t *testing.T) {
	out, err := executeRoot(t, "plan", "Open", "YouTube", "and", "search", "for", "Despacito")
	require.NoError(t, err)
	assert.Contains(t, out, "Plan (9 steps):")
	assert.Contains(t, out, "Opening YouTube")
	assert.Contains(t, out, "Searching for: Despacito")
}

func TestPlanCmd_JSON(t *testing.T) {
	out, err := executeRoot(t, "plan", "--json", "Open WhatsApp and send message to Crazy")
	require.NoError(t, err)

	var steps []agent.Step
	require.NoError(t, json.Unmarshal([]byte(out), &steps))
	require.Len(t, steps, 14)
	assert.Equal(t, agent.ActionOpenApp, steps[0].Action)
	assert.Equal(t, "com.whatsapp", steps[0].Target)
}

func TestPlanCmd_NotUnderstood(t *testing.T) {
	_, err := executeRoot(t, "plan", "do", "a", "barrel", "roll")
	assert.ErrorIs(t, err, session.ErrNotUnderstood)
}

func TestRunCmd_WithoutProvider(t *testing.T) {
	_, err := executeRoot(t, "run", "open whatsapp")
	assert.ErrorIs(t, err, action.ErrUnavailable)
	assert.Contains(t, err.Error(), "service not enabled")
}

func TestRunCmd_AppNotInstalled(t *testing.T) {
	tree := writeTree(t)
	out, err := executeRoot(t, "run", "--tree", tree, "open netflix")
	assert.ErrorIs(t, err, action.ErrActionFailed)
	assert.Contains(t, out, "✗ 1. Opening Netflix: App not installed: com.netflix.mediaclient")
}

func TestRunCmd_OpensApp(t *testing.T) {
	tree := writeTree(t)
	out, err := executeRoot(t, "run", "--tree", tree, "open whatsapp")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1. Opening WhatsApp: Opened app")
	assert.Contains(t, out, "✓ 2. Waiting for app to load: Waited 2000ms")
	assert.Contains(t, out, "All steps completed successfully")
}

func newTreeRuntime(t *testing.T) *runtime {
	t.Helper()
	cfg := config.Default()
	cfg.Provider.TreeFile = writeTree(t)
	rt, err := newRuntime(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func feedRepl(t *testing.T, rt *runtime, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := repl(context.Background(), scannerReader{newScanner(strings.Join(lines, "\n"))}, &out, rt, context.WithCancel)
	require.NoError(t, err)
	return out.String()
}

func TestRepl(t *testing.T) {
	rt := newTreeRuntime(t)
	text := feedRepl(t, rt, "history", "", "open netflix", "status", "history", "reset", "quit", "open whatsapp")

	assert.Contains(t, text, "No runs yet.")
	assert.Contains(t, text, "App not installed: com.netflix.mediaclient")
	assert.Contains(t, text, "Error: action rejected: App not installed")
	assert.Contains(t, text, "failure")
	assert.Contains(t, text, "open netflix")
	assert.Contains(t, text, "Ready.")
	assert.NotContains(t, text, "Opening WhatsApp", "input after quit is ignored")
}

func TestRepl_HistoryOfRun(t *testing.T) {
	rt := newTreeRuntime(t)
	feedRepl(t, rt, "open netflix")

	runs, err := rt.journal.Runs(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	text := feedRepl(t, rt, "history "+runs[0].ID[:4], "history zzzz")
	assert.Contains(t, text, "open netflix (1 of 2 steps attempted)")
	assert.Contains(t, text, " 1. failure  open_app")
	assert.Contains(t, text, "Opening Netflix: App not installed: com.netflix.mediaclient")
	assert.Contains(t, text, `No run matches "zzzz".`)
}

func TestRepl_ScreenAndHome(t *testing.T) {
	rt := newTreeRuntime(t)
	text := feedRepl(t, rt, "screen", "home")
	assert.Contains(t, text, "Text:\n  Home\n  WhatsApp\n")
	assert.Contains(t, text, "Clickable:\n  WhatsApp\n")
	assert.Contains(t, text, "Home.")

	empty, err := newRuntime(config.Default(), nil)
	require.NoError(t, err)
	defer empty.Close()
	text = feedRepl(t, empty, "screen", "home")
	assert.Contains(t, text, "Screen inspection needs the memory provider.")
	assert.Contains(t, text, "The provider has no home button.")
}

func TestRepl_StopsAtEOF(t *testing.T) {
	rt, err := newRuntime(config.Default(), nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.Contains(t, feedRepl(t, rt, "open whatsapp"), "service not enabled")
}

func TestRepl_RunScopeCancelsInstruction(t *testing.T) {
	rt := newTreeRuntime(t)
	cancelled := func(ctx context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		return ctx, cancel
	}

	var out bytes.Buffer
	err := repl(context.Background(), scannerReader{newScanner("open whatsapp\nstatus")}, &out, rt, cancelled)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Error: execution cancelled: Execution cancelled")
	assert.Contains(t, out.String(), "Error: Execution cancelled", "status reports the cancelled run")
}

func TestKeyReader(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src, input := io.Pipe()
	keys := newKeyReader(src)
	buf := make([]byte, 16)

	// Idle: Ctrl-C reaches the line editor.
	_, err := input.Write([]byte{'a', keyCtrlC})
	require.NoError(t, err)
	n, err := keys.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', keyCtrlC}, buf[:n])

	// During a run: Ctrl-C cancels the run and is dropped.
	runCtx, done := keys.interruptible(context.Background())
	_, err = input.Write([]byte{'b', keyCtrlC, 'c'})
	require.NoError(t, err)
	n, err = keys.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("bc"), buf[:n])
	assert.ErrorIs(t, runCtx.Err(), context.Canceled)
	done()

	require.NoError(t, input.Close())
	_, err = keys.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLoadConfig_FlagsOverrideBeforeValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crazyagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  type: adb\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--config", path, "--provider", "", "--tree", "", "open whatsapp"})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "provider.type")

	rootCmd.SetArgs([]string{"run", "--config", path, "--provider", "memory", "--tree", "", "open whatsapp"})
	err = rootCmd.Execute()
	assert.ErrorIs(t, err, action.ErrUnavailable)
}

func TestNewRuntime_DenyActions(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.TreeFile = writeTree(t)
	cfg.Policy.DenyActions = []string{string(agent.ActionOpenApp)}
	rt, err := newRuntime(cfg, nil)
	require.NoError(t, err)
	defer rt.Close()

	var out bytes.Buffer
	err = execute(context.Background(), &out, rt.session, "open whatsapp")
	assert.ErrorIs(t, err, action.ErrDenied)
	assert.Contains(t, out.String(), "✗ 1. Opening WhatsApp")
}

func TestNewPolicy_InvalidPattern(t *testing.T) {
	_, err := newPolicy(config.PolicyConfig{DenyText: []string{"("}})
	assert.ErrorContains(t, err, "policy.deny_text")

	policy, err := newPolicy(config.PolicyConfig{DenyPackages: []string{"com.netflix.mediaclient"}, DenyText: []string{"(?i)secret"}})
	require.NoError(t, err)
	assert.NotNil(t, policy)
}

func TestHeartbeat(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var events bytes.Buffer
	before := time.Now()
	require.NoError(t, heartbeat(ctx, observability.NewLogger(&events), time.Millisecond))

	assert.False(t, observability.LastHeartbeat().Before(before))
	assert.Contains(t, events.String(), `"type":"heartbeat"`)
}
