package textx_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-voice-studio/pkg/textx"
)

const problemScript = `Hello there.  
    This is a test of the text to speech system.  
    We are checking how line breaks affect the output.  
    Does the voice pause here?  
    Now let` + "’" + `s try a longer sentence, with a natural flow,  
    to see if the pacing, emphasis, and tone sound correct.  
    Finally, here is a short line.  
    And another.  
    Done.`

func requireASCII(t *testing.T, s string) {
	t.Helper()
	for i := 0; i < len(s); i++ {
		require.LessOrEqualf(t, s[i], byte(127), "byte %d of %q is not ASCII", i, s)
	}
}

func TestSanitizeForTTS_ProblemScript(t *testing.T) {
	got, err := textx.SanitizeForTTS(problemScript)
	require.NoError(t, err)
	assert.NotContains(t, got, "‘")
	assert.NotContains(t, got, "’")
	assert.Contains(t, got, "let's")
	assert.Greater(t, len(strings.Split(got, "\n")), 1)
	assert.True(t, strings.HasPrefix(got, "Hello there.\nThis is a test"))
	requireASCII(t, got)
}

func TestSanitizeForTTS_MixedCharacters(t *testing.T) {
	got, err := textx.SanitizeForTTS("Test—with em-dash, ‘smart quotes’, and ellipsis… Plus 25° weather!")
	require.NoError(t, err)
	assert.Equal(t, "Test--with em-dash, 'smart quotes', and ellipsis... Plus 25 degrees weather!", got)
}

func TestSanitizeForTTS_EmptyAfterSanitization(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"\u200b\u200b\u200b", "\x00\x01\x02", "你好", " \n \t "} {
		_, err := textx.SanitizeForTTS(in)
		require.ErrorIs(t, err, textx.ErrEmptyResult, "input %q", in)
	}
}

func TestSanitizeForTTS_EmptyInput(t *testing.T) {
	got, err := textx.SanitizeForTTS("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSanitizeForTTS_Paragraphs(t *testing.T) {
	got, err := textx.SanitizeForTTS("First paragraph.\r\n\r\n\r\n\r\nSecond   paragraph.\n\n")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", got)
}

func TestSanitizeForTTS_TrailingParagraphBreakTrimmed(t *testing.T) {
	assert.Equal(t, "a\n", textx.NormalizeLineBreaks("a\n\n"))
	got, err := textx.SanitizeForTTS("a\n\n")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestSanitizeForTTS_SettlesReducedLines(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"line separators":      "a\u2028\u2028\u2028b",
		"deleted line":         "a\n\n你好\n\nb",
		"zero-width line":      "a\n\n\u200b\nb",
		"trailing deleted":     "a\n\n\u200b",
		"paragraph separators": "a\u2029\u2029b",
	}
	for name, in := range tests {
		in := in
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := textx.SanitizeForTTS(in)
			require.NoError(t, err)
			assert.NotContains(t, got, "\n\n\n")
			again, err := textx.SanitizeForTTS(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestSanitizePrompt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line breaks", "Speak with\na calm\nand friendly tone", "Speak with a calm and friendly tone"},
		{"full cleaning", "Use a ‘friendly’  tone—speak   clearly\nand slowly", "Use a 'friendly' tone--speak clearly and slowly"},
		{"carriage returns", "one\r\ntwo\rthree", "one two three"},
		{"empty", "", ""},
		{"only invisible", "\u200b\u200b", ""},
		{"built instructions", "Tone: calm\n\nPacing: slow", "Tone: calm Pacing: slow"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := textx.SanitizePrompt(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\n")
		})
	}
}

func TestSanitizeForTTS_Idempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{
		problemScript,
		"Café — naïve…\n\n\n\nNext\tparagraph here.",
		"  “Quoted”\r\n\r\n  • bullet\r\n",
		"x\u00a0\u00a0y × z ÷ 2",
	}
	for _, in := range inputs {
		once, err := textx.SanitizeForTTS(in)
		require.NoError(t, err)
		twice, err := textx.SanitizeForTTS(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
		requireASCII(t, once)
	}
}
