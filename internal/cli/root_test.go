package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "typo3cr", cmd.Use)
	assert.Contains(t, cmd.Long, "workspaces")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "import", "check", "query", "map"}

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
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestBackendFlags(t *testing.T) {
	tests := []struct {
		command string
		backend string
	}{
		{"import", BackendSQLite},
		{"check", BackendLevelDB},
		{"query", BackendSQLite},
		{"map", BackendSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd := NewRootCommand()
			subCmd, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			for _, name := range []string{"db", "workspace", "schema"} {
				flag := subCmd.Flags().Lookup(name)
				require.NotNil(t, flag, "--%s", name)
				assert.Equal(t, "", flag.DefValue)
			}
			backendFlag := subCmd.Flags().Lookup("backend")
			require.NotNil(t, backendFlag)
			assert.Equal(t, tt.backend, backendFlag.DefValue)
		})
	}
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	queryCmd, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)

	for _, name := range []string{"type", "where", "bind"} {
		assert.NotNil(t, queryCmd.Flags().Lookup(name), "--%s", name)
	}
	assert.Equal(t, "0", queryCmd.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "0", queryCmd.Flags().Lookup("offset").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "validate", "testdata/schema"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
