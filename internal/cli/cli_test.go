package cli

import (
	"path/filepath"
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFlag(t *testing.T) {
	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("0.1.0-test", []string{"--version"})
	})

	assert.NoError(t, err)
	assert.Equal(t, "webpersona 0.1.0-test", strings.TrimSpace(output))
}

// noExec parses without running the matched command.
func noExec(goflags.Commander, []string) error { return nil }

func TestSubcommandsRecognized(t *testing.T) {
	cases := [][]string{
		{"analyze", "--days", "7", "--browser", "firefox"},
		{"analyze", "--all"},
		{"status"},
		{"open", "--id", "01HX0000000000000000000000", "--format", "md"},
		{"export", "--format", "xlsx", "--out", "x.xlsx"},
		{"insight", "--yes", "--api-key", "sk-test"},
		{"key", "--show"},
		{"engagement", "--since", "24h"},
		{"ingest", "--port", "9000", "--log-level", "debug"},
		{"prune", "--older-than", "30d", "--dry-run"},
		{"purge", "--all", "--force"},
	}
	for _, args := range cases {
		parser, _, _ := buildParser("test")
		parser.CommandHandler = noExec
		require.NotNil(t, parser.Find(args[0]), args[0])
		_, err := parser.ParseArgs(args)
		assert.NoError(t, err, args)
	}
}

func TestFlagsBindToCommands(t *testing.T) {
	parser, globals, cmds := buildParser("test")
	parser.CommandHandler = noExec

	_, err := parser.ParseArgs([]string{"--json", "--db", "/tmp/x.db", "prune", "--older-than", "7d", "--dry-run"})
	require.NoError(t, err)

	assert.True(t, globals.JSON)
	assert.Equal(t, "/tmp/x.db", globals.DB)
	assert.Equal(t, "7d", cmds.Prune.OlderThan)
	assert.True(t, cmds.Prune.DryRun)
}

func TestDefaults(t *testing.T) {
	for _, tc := range []struct {
		cmd  string
		read func(*commands) string
		want string
	}{
		{"open", func(c *commands) string { return c.Open.Format }, "full"},
		{"engagement", func(c *commands) string { return c.Engagement.Since }, "7d"},
		{"export", func(c *commands) string { return c.Export.Format }, "csv"},
	} {
		parser, _, cmds := buildParser("test")
		parser.CommandHandler = noExec
		_, err := parser.ParseArgs([]string{tc.cmd})
		require.NoError(t, err)
		assert.Equal(t, tc.want, tc.read(cmds), tc.cmd)
	}
}

func TestPurgeRequiresAll(t *testing.T) {
	err := RunWithArgs("test", []string{"purge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}

func TestKeyRequiresExactlyOneAction(t *testing.T) {
	err := RunWithArgs("test", []string{"key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")

	err = RunWithArgs("test", []string{"key", "--show", "--clear"})
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	err := RunWithArgs("test", []string{"search", "golang"})
	assert.Error(t, err)
}

func TestRunWithDBFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "state.db")

	output := captureOutput(t, func() {
		require.NoError(t, RunWithArgs("test", []string{"--db", dbPath, "key", "--set", "sk-abcdefgh1234"}))
	})
	assert.Contains(t, output, "API key stored.")

	output = captureOutput(t, func() {
		require.NoError(t, RunWithArgs("test", []string{"--db", dbPath, "key", "--show"}))
	})
	assert.Contains(t, output, "sk-...1234 (stored)")
}
