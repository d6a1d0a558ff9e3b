package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlab/datescout/internal/scraper"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadTargets(t *testing.T) {
	path := writeInput(t, "url_id\turl\n1\thttps://a.example/one\n2\thttps://b.example/two\n")

	targets, err := ReadTargets(path)
	require.NoError(t, err)
	assert.Equal(t, []scraper.Target{
		{ID: "1", URL: "https://a.example/one"},
		{ID: "2", URL: "https://b.example/two"},
	}, targets)
}

func TestReadTargetsWithoutHeader(t *testing.T) {
	path := writeInput(t, "1\thttps://a.example/one\n")

	targets, err := ReadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "1", targets[0].ID)
}

func TestReadTargetsSkipsBlankLinesAndCR(t *testing.T) {
	path := writeInput(t, "id\turl\r\n\n1\thttps://a.example/one\r\n")

	targets, err := ReadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "https://a.example/one", targets[0].URL)
}

func TestReadTargetsMalformedRow(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing url column", content: "1\n"},
		{name: "empty id", content: "\thttps://a.example/one\n"},
		{name: "empty url", content: "1\t\n"},
		{name: "space separated", content: "1 https://a.example/one\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTargets(writeInput(t, tt.content))
			assert.ErrorContains(t, err, "line 1")
		})
	}
}

func TestReadTargetsMissingFile(t *testing.T) {
	_, err := ReadTargets(filepath.Join(t.TempDir(), "absent.tsv"))
	assert.Error(t, err)
}
