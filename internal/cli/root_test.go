package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tempora", cmd.Use)
	assert.Contains(t, cmd.Long, "bitemporal")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"parse", "explain", "validate", "save", "get", "update", "delete", "history", "query", "stats", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "0", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "schema", "log-level", "log-format", "metrics-out"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"explain", []string{"at"}},
		{"save", []string{"id", "business-from"}},
		{"get", []string{"as-of", "processing-as-of"}},
		{"update", []string{"as-of"}},
		{"delete", []string{"as-of"}},
		{"test", []string{"update", "filter"}},
	}

	cmd := NewRootCommand()
	for _, tc := range tests {
		t.Run(tc.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tc.command})
			require.NoError(t, err)
			for _, name := range tc.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), name)
			}
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "parse", "findByStatus", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}
