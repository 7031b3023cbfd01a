package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/pipeline"
	"github.com/poiesic/minutia/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"minutia", "--provider", "simulated"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEnvFileArg(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantPath     string
		wantExplicit bool
	}{
		{name: "default", args: []string{"minutia", "serve"}, wantPath: ".env"},
		{name: "separate value", args: []string{"minutia", "--env-file", "prod.env", "serve"}, wantPath: "prod.env", wantExplicit: true},
		{name: "equals value", args: []string{"minutia", "--env-file=dev.env"}, wantPath: "dev.env", wantExplicit: true},
		{name: "positional is ignored", args: []string{"minutia", "analyze", "env-file"}, wantPath: ".env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, explicit := envFileArg(tt.args)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantExplicit, explicit)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(dir, "absent.env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		assert.Error(t, loadEnvFile(filepath.Join(dir, "absent.env"), true))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := writeFile(t, dir, "test.env", "MINUTIA_CLI_TEST_VAR=loaded\n")
		t.Cleanup(func() { os.Unsetenv("MINUTIA_CLI_TEST_VAR") })

		require.NoError(t, loadEnvFile(path, true))
		assert.Equal(t, "loaded", os.Getenv("MINUTIA_CLI_TEST_VAR"))
	})
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "retrieve", "--project", "a", "--department", "b", "--query", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestUnknownStore(t *testing.T) {
	_, err := run(t, "--store", "postgres", "retrieve", "--project", "a", "--department", "b", "--query", "c")
	assert.Error(t, err)
}

func TestRetrieveRequiresQuery(t *testing.T) {
	_, err := run(t, "retrieve", "--project", "Apollo", "--department", "Finance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestIndexRetrieveReindex(t *testing.T) {
	dir := t.TempDir()
	store := []string{"--store", "badger", "--store-path", filepath.Join(dir, "db"), "--index-dim", "64"}
	file := writeFile(t, dir, "meeting.txt", "The launch budget for Apollo was approved.")

	out, err := run(t, append(store, "index",
		"--project", "Apollo",
		"--department", "Finance",
		"--date", "2024-03-01T10:00:00Z",
		file)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 record(s) for project Apollo")

	out, err = run(t, append(store, "retrieve",
		"--project", "Apollo",
		"--department", "Finance",
		"--query", "launch budget")...)
	require.NoError(t, err)
	assert.Equal(t, "Context #1: The launch budget for Apollo was approved.\n", out)

	out, err = run(t, append(store, "reindex", "--retry-delay", "1ms")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed 1 record(s) in 1 namespace(s)")
}

func TestDimPolicy(t *testing.T) {
	file := writeFile(t, t.TempDir(), "meeting.txt", "The launch budget was approved.")

	t.Run("unknown policy", func(t *testing.T) {
		_, err := run(t, "--dim-policy", "stretch", "index", file)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("strict rejects mismatched dimensions", func(t *testing.T) {
		_, err := run(t, "--dim-policy", "strict", "--index-dim", "64", "index", file)
		require.Error(t, err)
		assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	})

	t.Run("normalizing policy indexes", func(t *testing.T) {
		out, err := run(t, "--dim-policy", "truncate-pad-normalize", "--index-dim", "64", "index", file)
		require.NoError(t, err)
		assert.Contains(t, out, "Indexed 1 record(s)")
	})
}

func TestIndexRejectsBadDate(t *testing.T) {
	file := writeFile(t, t.TempDir(), "meeting.txt", "hello")

	_, err := run(t, "index", "--date", "yesterday", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestAnalyze(t *testing.T) {
	file := writeFile(t, t.TempDir(), "meeting.txt", "Project Apollo sync. Alice will send the budget forecast by Friday.")

	out, err := run(t, "--index-dim", "64", "analyze", file)
	require.NoError(t, err)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Apollo", result.Metadata.ProjectName)
	assert.Positive(t, result.IndexedChunks)
}

func TestAnalyzeRequiresFile(t *testing.T) {
	_, err := run(t, "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcript file is required")
}

func TestBatch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "monday.txt", "Project Apollo sync. Alice will send the report.")
	writeFile(t, in, "tuesday.txt", "Project Hermes review. Bob will fix the deploy bug.")
	writeFile(t, in, "notes.md", "ignored")

	stdout, err := run(t, "--index-dim", "64", "batch", "--out", out, in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "monday:")
	assert.Contains(t, stdout, "tuesday:")

	for name, project := range map[string]string{"monday": "Apollo", "tuesday": "Hermes"} {
		data, err := os.ReadFile(filepath.Join(out, name+".insights.json"))
		require.NoError(t, err)

		var result pipeline.Result
		require.NoError(t, json.Unmarshal(data, &result))
		assert.Equal(t, project, result.Metadata.ProjectName)
	}
	assert.NoFileExists(t, filepath.Join(out, "notes.insights.json"))
}

func TestBatchReportsFailures(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "good.txt", "Project Apollo sync. Alice will send the report.")
	writeFile(t, in, "empty.txt", "   ")

	_, err := run(t, "--index-dim", "64", "batch", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 transcripts failed")
	assert.FileExists(t, filepath.Join(in, "good.insights.json"))
}

func TestReindexValidatesFlags(t *testing.T) {
	_, err := run(t, "reindex", "--batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch-size")
}
