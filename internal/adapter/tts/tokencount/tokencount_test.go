package tokencount

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	tests := []struct {
		name     string
		text     string
		model    string
		minCount int
		maxCount int
	}{
		{"speech model", "Hello, world!", "gpt-4o-mini-tts", 3, 5},
		{"legacy model", "The quick brown fox jumps over the lazy dog.", "gpt-3.5-turbo", 8, 12},
		{"prefixed model id", "Testing token counting", "openai/gpt-4o-mini-tts", 3, 6},
		{"unknown model falls back", "Hello, world!", "some-other-model", 3, 5},
		{"empty", "", "gpt-4o-mini-tts", 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := counter.CountTokens(tt.text, tt.model)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, tt.minCount)
			assert.LessOrEqual(t, n, tt.maxCount)
		})
	}
}

func TestEncodingName(t *testing.T) {
	assert.Equal(t, "o200k_base", encodingName("gpt-4o-mini-tts"))
	assert.Equal(t, "o200k_base", encodingName("tts-1-hd"))
	assert.Equal(t, "cl100k_base", encodingName("gpt-4-turbo"))
	assert.Equal(t, "o200k_base", encodingName("whatever"))
}

func TestCountTokens_ConcurrentCache(t *testing.T) {
	counter := NewCounter()
	text := strings.Repeat("Concurrent counting. ", 20)
	want, err := counter.CountTokens(text, "gpt-4o-mini-tts")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := counter.CountTokens(text, "gpt-4o-mini-tts")
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("abcd"))
	assert.Equal(t, 2, Estimate("abcde"))
}
