package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"github.com/webrecap/webrecap/internal/cache"
	"github.com/webrecap/webrecap/internal/config"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	failures []error
	response string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.failures) > 0 {
		err := g.failures[0]
		g.failures = g.failures[1:]
		if err != nil {
			return "", err
		}
	}
	if g.response != "" {
		return g.response, nil
	}
	return `{"content_type":"article","tldr":"a summary","bullets":["point"]}`, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testSummarizerConfig() config.SummarizerConfig {
	return config.SummarizerConfig{
		ChunkSize:   90000,
		MaxRetries:  5,
		Temperature: 0.3,
		MergeBatch:  5,
	}
}

func TestSplitChunks_ShortContentSingleChunk(t *testing.T) {
	chunks := splitChunks("hello world", 100)
	require.Equal(t, []string{"hello world"}, chunks)
}

func TestSplitChunks_PreservesContent(t *testing.T) {
	content := strings.Repeat("one two three four five. ", 40)
	chunks := splitChunks(content, 100)
	require.Greater(t, len(chunks), 1)
	require.Equal(t, content, strings.Join(chunks, ""))
	for _, chunk := range chunks[:len(chunks)-1] {
		require.LessOrEqual(t, len(chunk), 100)
	}
}

func TestSplitChunks_NoMidWordCut(t *testing.T) {
	content := strings.Repeat("abcdefgh ", 30)
	for _, chunk := range splitChunks(content, 50) {
		for _, word := range strings.Fields(chunk) {
			require.Equal(t, "abcdefgh", word)
		}
	}
}

func TestSplitChunks_MultiByteRunesStayIntact(t *testing.T) {
	// No sentence or whitespace boundary anywhere, and the window lands
	// mid-rune, so the fallback must back the cut off the partial rune.
	content := strings.Repeat("é", 100)
	chunks := splitChunks(content, 101)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.True(t, utf8.ValidString(chunk))
	}
	require.Equal(t, content, strings.Join(chunks, ""))
}

func TestTruncate_ShortUnchanged(t *testing.T) {
	require.Equal(t, "short", truncate("short"))
}

func TestSummarize_EmptyContent(t *testing.T) {
	s := New(&fakeGenerator{}, "test-model", cache.NewMemory(), testSummarizerConfig())
	_, err := s.Summarize(context.Background(), "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestSummarize_SingleChunkNoMerge(t *testing.T) {
	gen := &fakeGenerator{}
	s := New(gen, "test-model", cache.NewMemory(), testSummarizerConfig())

	result, err := s.Summarize(context.Background(), "a short piece of content to summarize")
	require.NoError(t, err)
	require.JSONEq(t, `{"content_type":"article","tldr":"a summary","bullets":["point"]}`, string(result))
	require.Equal(t, 1, gen.callCount())
}

func TestSummarize_MultiChunkMergesHierarchically(t *testing.T) {
	gen := &fakeGenerator{}
	cfg := testSummarizerConfig()
	cfg.ChunkSize = 60
	cfg.MergeBatch = 5
	s := New(gen, "test-model", cache.NewMemory(), cfg)

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "sentence %03d with several words inside it. ", i)
	}
	content := sb.String()
	chunks := splitChunks(truncate(content), cfg.ChunkSize)
	require.Greater(t, len(chunks), 5)

	_, err := s.Summarize(context.Background(), content)
	require.NoError(t, err)
	// one call per chunk, plus two first-round merges and one final merge
	expectedMerges := 3
	require.Equal(t, len(chunks)+expectedMerges, gen.callCount())
}

func TestSummarize_FullResultCache(t *testing.T) {
	gen := &fakeGenerator{}
	s := New(gen, "test-model", cache.NewMemory(), testSummarizerConfig())
	content := "cacheable content"

	_, err := s.Summarize(context.Background(), content)
	require.NoError(t, err)
	calls := gen.callCount()

	_, err = s.Summarize(context.Background(), content)
	require.NoError(t, err)
	require.Equal(t, calls, gen.callCount())
}

func TestSummarize_AuthFailureAborts(t *testing.T) {
	gen := &fakeGenerator{failures: []error{fmt.Errorf("%w: bad key", appErr.ErrAuth)}}
	s := New(gen, "test-model", cache.NewMemory(), testSummarizerConfig())

	_, err := s.Summarize(context.Background(), "content")
	require.ErrorIs(t, err, appErr.ErrAuth)
	require.Equal(t, 1, gen.callCount())
}

func TestSummarize_NonRetryableChunkFailure(t *testing.T) {
	gen := &fakeGenerator{failures: []error{errors.New("model melted")}}
	cfg := testSummarizerConfig()
	s := New(gen, "test-model", cache.NewMemory(), cfg)

	_, err := s.Summarize(context.Background(), "content")
	require.Error(t, err)
	require.Equal(t, 1, gen.callCount())
}

func TestSummarize_RetriesTransientFailure(t *testing.T) {
	gen := &fakeGenerator{failures: []error{fmt.Errorf("%w: 503", appErr.ErrTransient)}}
	cfg := testSummarizerConfig()
	cfg.MaxRetries = 2
	s := New(gen, "test-model", cache.NewMemory(), cfg)

	result, err := s.Summarize(context.Background(), "content")
	require.NoError(t, err)
	require.NotEmpty(t, result)
	require.Equal(t, 2, gen.callCount())
}

func TestExtractJSON_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"tldr\":\"x\"}\n```"
	got, err := extractJSON(raw)
	require.NoError(t, err)
	require.JSONEq(t, `{"tldr":"x"}`, string(got))
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	got, err := extractJSON("Here is the summary: {\"tldr\":\"x\"} hope it helps")
	require.NoError(t, err)
	require.JSONEq(t, `{"tldr":"x"}`, string(got))
}

func TestExtractJSON_NotJSON(t *testing.T) {
	_, err := extractJSON("no object here")
	require.Error(t, err)
}
