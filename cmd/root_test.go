package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"score", "import", "funnel", "classify", "migrate", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "matchmaker", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range importCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["startups"])
	assert.True(t, names["investors"])

	for _, flag := range []string{"file", "mapping", "save-mapping", "dry-run"} {
		assert.NotNil(t, importCmd.PersistentFlags().Lookup(flag), "import should have --%s", flag)
	}
	assert.NotNil(t, importStartupsCmd.Flags().Lookup("investor"))
	assert.NotNil(t, importStartupsCmd.Flags().Lookup("output"))
}

func TestFunnelCommand_Flags(t *testing.T) {
	flag := funnelCmd.PersistentFlags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
	assert.Len(t, funnelCmd.Commands(), 2)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, name := range []string{"startup", "investor", "json"} {
		assert.NotNil(t, scoreCmd.Flags().Lookup(name), "score should have --%s", name)
	}
}
