// internal/interfaces/cli/root_test.go

package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "fileready", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Version)
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"migrate", "queues", "enqueue"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCommandGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "configs/config.yaml", configFlag.DefValue)
	assert.Equal(t, "c", configFlag.Shorthand)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "warn", levelFlag.DefValue)
}

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "enqueue")
}

func TestRootCommandUnknownSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"definitely-not-a-command"})

	assert.Error(t, cmd.Execute())
}

func TestMigrateCommandStructure(t *testing.T) {
	cmd := newMigrateCommand(&rootOptions{})

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["up"])
	assert.True(t, names["down"])
}

func TestQueuesCleanFlagDefaults(t *testing.T) {
	cmd := newQueuesCommand(&rootOptions{})

	for _, sub := range cmd.Commands() {
		if sub.Name() != "clean" {
			continue
		}
		ageFlag := sub.Flags().Lookup("age")
		require.NotNil(t, ageFlag)
		assert.Equal(t, "24h0m0s", ageFlag.DefValue)
		return
	}
	t.Fatal("clean subcommand not registered")
}

func TestEnqueueRequiresJobName(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"enqueue"})

	assert.Error(t, cmd.Execute())
}

func TestBuildVariablesHaveDefaults(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, GitCommit)
	assert.NotEmpty(t, BuildDate)
}
