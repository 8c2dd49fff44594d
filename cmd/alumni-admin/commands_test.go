package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"migrate", "set-role", "export"}, names)
}

func runWithoutConnection(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestSetRoleRejectsUnknownRoleBeforeTouchingTheStore(t *testing.T) {
	err := runWithoutConnection(t, newSetRoleCmd(&env{}), "Principal", "--id", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestSetRoleNeedsExactlyOneTarget(t *testing.T) {
	err := runWithoutConnection(t, newSetRoleCmd(&env{}), "Admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --email or --id")

	err = runWithoutConnection(t, newSetRoleCmd(&env{}), "admin", "--id", "x", "--email", "a@b.com")
	require.Error(t, err)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	err := runWithoutConnection(t, newExportCmd(&env{}), "--format", "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestWriteFileCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "2024", "directory.csv")

	require.NoError(t, writeFile(path, []byte("Full Name\n")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Full Name\n", string(raw))
}
