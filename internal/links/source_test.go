package links_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkcheck/internal/links"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantURLs  []string
		wantLines []int
	}{
		{
			name:      "plain url per line",
			input:     "https://example.com/a\nhttps://example.com/b\n",
			wantURLs:  []string{"https://example.com/a", "https://example.com/b"},
			wantLines: []int{1, 2},
		},
		{
			name:      "first url in line wins",
			input:     "see https://example.com/first and https://example.com/second\n",
			wantURLs:  []string{"https://example.com/first"},
			wantLines: []int{1},
		},
		{
			name:      "lines without urls are skipped but keep numbering",
			input:     "no link here\nhttps://example.com/x\n\nplain text\nhttp://example.org/y\n",
			wantURLs:  []string{"https://example.com/x", "http://example.org/y"},
			wantLines: []int{2, 5},
		},
		{
			name:      "url embedded in prose",
			input:     "check this https://example.com/offer?redeemToken=a1 out\n",
			wantURLs:  []string{"https://example.com/offer?redeemToken=a1"},
			wantLines: []int{1},
		},
		{
			name:     "empty input",
			input:    "",
			wantURLs: nil,
		},
		{
			name:     "scheme without host is not a url",
			input:    "https:// broken\n",
			wantURLs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := links.Parse(strings.NewReader(tt.input), zap.NewNop())
			require.NoError(t, err)
			require.Len(t, tasks, len(tt.wantURLs))
			for i, task := range tasks {
				assert.Equal(t, tt.wantURLs[i], task.URL)
				assert.Equal(t, tt.wantLines[i], task.LineNum)
			}
		})
	}
}

func TestParsePreservesRawLine(t *testing.T) {
	tasks, err := links.Parse(strings.NewReader("prefix https://example.com/a suffix\n"), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "prefix https://example.com/a suffix", tasks[0].RawLine)
}

func TestReadFileMissing(t *testing.T) {
	_, err := links.ReadFile("does-not-exist.txt", zap.NewNop())
	require.Error(t, err)
}
