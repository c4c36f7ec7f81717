package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/dairy-footprint/internal/store/sqlite"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestTemplateRunAndHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	t.Setenv("FOOTPRINT_STORE_PATH", dbPath)

	template := filepath.Join(dir, "farms.xlsx")
	require.NoError(t, execute(t, "template", template))
	require.FileExists(t, template)

	reportDir := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	require.NoError(t, execute(t, "run", template, "--tier", "2", "--quiet", "--save", "-o", reportDir, "--format", "csv"))

	entries, err := os.ReadDir(reportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".csv", filepath.Ext(entries[0].Name()))

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Summary.Tier)
	assert.Equal(t, 1, runs[0].Summary.NFarmsSuccessful)

	require.NoError(t, execute(t, "history"))
	require.NoError(t, execute(t, "history", runs[0].RunID))
	assert.Error(t, execute(t, "history", "missing"))
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "farms.xlsx")
	require.NoError(t, execute(t, "template", template))

	assert.Error(t, execute(t, "run", template, "--tier", "3", "--quiet"))
	assert.Error(t, execute(t, "run", filepath.Join(dir, "missing.csv"), "--tier", "1", "--quiet"))
}

func TestFactorsCommand(t *testing.T) {
	require.NoError(t, execute(t, "factors", "fuel.diesel", "IE"))
	assert.Error(t, execute(t, "factors", "unobtainium"))
}
