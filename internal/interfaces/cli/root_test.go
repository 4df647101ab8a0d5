package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["classify"])
	assert.True(t, names["migrate"])
	assert.True(t, names["version"])
}

func TestVersionCommand_PrintsBuildInfo(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "hscode "+Version)
	assert.Contains(t, buf.String(), "commit:")
}

func TestRootCommand_VersionString(t *testing.T) {
	cmd := NewRootCommand()
	assert.Contains(t, cmd.Version, "commit:")
}

func TestReadDocument_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"product": {"description": "stainless steel lunch box", "material": "steel"},
		"candidates": [{"code": "73239300", "source": "pre-classify"}]
	}`), 0o600))

	doc, err := readDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "stainless steel lunch box", doc.Product.Description)
	require.Len(t, doc.Candidates, 1)
	assert.Equal(t, "73239300", doc.Candidates[0].Code)
}

func TestReadDocument_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := readDocument(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode input document")
}

func sampleResult(t *testing.T) *tariff.RunResult {
	t.Helper()
	surv, err := tariff.NewCandidate("73239300", "test")
	require.NoError(t, err)
	elim, err := tariff.NewCandidate("39241000", "test")
	require.NoError(t, err)
	elim.Eliminate(tariff.StageChapter, "excluded by chapter note")

	return &tariff.RunResult{
		RunID:           "run-1",
		Survivors:       []*tariff.Candidate{surv},
		Eliminated:      []*tariff.Candidate{elim},
		SurvivorCount:   1,
		EliminatedCount: 1,
		NeedsAI:         false,
		Timestamp:       time.Now().UTC(),
	}
}

func TestPrintResult_JSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, "json", sampleResult(t)))

	var decoded tariff.RunResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Survivors, 1)
}

func TestPrintResult_TextSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, "text", sampleResult(t)))

	out := buf.String()
	assert.Contains(t, out, "1 survivor(s), 1 eliminated")
	assert.Contains(t, out, "+ 73239300")
	assert.Contains(t, out, "- 39241000")
	assert.Contains(t, out, "excluded by chapter note")
}
