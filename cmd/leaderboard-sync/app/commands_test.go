package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/versions"
)

// The commands share the global viper instance, so these tests are not parallel.

// runCommand executes the root command with args and returns its stdout
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// writeWorkspace creates a snapshot and a config file pointing at it
func writeWorkspace(t *testing.T, snapshot string) string {
	t.Helper()

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "progress.csv")
	require.NoError(t, os.WriteFile(snapshotPath, []byte(snapshot), 0600))

	configPath := filepath.Join(dir, "config.yaml")
	configYAML := fmt.Sprintf(`source:
  type: file
  format: csv
  file:
    path: %s
storage:
  type: file
  dataDir: %s
`, snapshotPath, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0600))
	return configPath
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "leaderboard-sync "))

	out, err = runCommand(t, "", "version", "--format", "json")
	require.NoError(t, err)
	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, versions.Version, info.Version)

	_, err = runCommand(t, "", "version", "--format", "xml")
	require.Error(t, err)
}

func TestReconcileAndShow(t *testing.T) {
	configPath := writeWorkspace(t,
		"User Name,# of Skill Badges Completed,# of Arcade Games Completed\n"+
			"Ada Lovelace,19/19,1\nLinus,12,0\nGrace Hopper,15,yes\n")

	out, err := runCommand(t, "", "reconcile", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, successMessage+"\n", out)

	out, err = runCommand(t, "", "show", "--config", configPath, "--format", "json")
	require.NoError(t, err)
	var list service.EntryList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Entries, 3)
	assert.Equal(t, "Ada Lovelace", list.Entries[0].Name)
	assert.True(t, list.Entries[0].Locked)
	assert.Equal(t, "Grace Hopper", list.Entries[1].Name)
	assert.Equal(t, "Linus", list.Entries[2].Name)

	out, err = runCommand(t, "", "show", "--config", configPath, "--search", "grace")
	require.NoError(t, err)
	assert.Contains(t, out, "Grace Hopper")
	assert.NotContains(t, out, "Linus")
	assert.Contains(t, out, "1 of 1 participants")
}

func TestReconcile_EmptySnapshotFails(t *testing.T) {
	configPath := writeWorkspace(t, "User Name,# of Skill Badges Completed\n")

	out, err := runCommand(t, "", "reconcile", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EmptySnapshot")
	assert.Empty(t, out)
}

func TestShow_UnsupportedFormat(t *testing.T) {
	configPath := writeWorkspace(t, "User Name,# of Skill Badges Completed\nAda,3\n")

	_, err := runCommand(t, "", "show", "--config", configPath, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestCommandsRequireConfig(t *testing.T) {
	t.Setenv("LEADERBOARD_CONFIG", "")

	for _, args := range [][]string{{"reconcile"}, {"show"}, {"migrate", "up", "--yes"}} {
		_, err := runCommand(t, "", args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "configuration file is required", args)
	}
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	configPath := writeWorkspace(t, "User Name,# of Skill Badges Completed\nAda,3\n")

	_, err := runCommand(t, "", "migrate", "up", "--config", configPath, "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration is required")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	list := &service.EntryList{Total: 4}
	for i, name := range []string{"Ada Lovelace", "Linus"} {
		e := service.Entry{Badge: "Yes"}
		e.Name = name
		e.Rank = i + 1
		e.CompletedPaths = 19 - i
		e.TotalPaths = 19
		e.Locked = i == 0
		list.Entries = append(list.Entries, e)
	}

	require.NoError(t, renderTable(&buf, list))
	out := buf.String()
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "19/19")
	assert.Contains(t, out, "18/19")
	assert.Contains(t, out, "2 of 4 participants")
}
