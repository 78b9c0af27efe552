package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	"github.com/fairyhunter13/ai-voice-studio/internal/usecase"
)

func TestGenerate_SanitizesAndSynthesizes(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	lim := &stubLimiter{allowed: true}
	svc := usecase.NewGenerateService(synth, nil, lim, usecase.GenerateConfig{Model: "gpt-4o-mini-tts"})

	out, err := svc.Generate(context.Background(), "alice", usecase.GenerateInput{
		Script:    "“Hello” — it’s café time…\r\n\r\n\r\n你好 World",
		Voice:     "Coral",
		Direction: domain.VoiceDirection{Tone: "Warm\nand friendly", Pacing: "Slow"},
		Format:    domain.FormatWAV,
	})
	require.NoError(t, err)
	require.Len(t, synth.calls, 1)

	req := synth.calls[0]
	assert.Equal(t, "\"Hello\" -- it's cafe time...\n\nWorld", req.Input)
	assert.Equal(t, domain.VoiceCoral, req.Voice)
	assert.Equal(t, "Tone: Warm and friendly Pacing: Slow", req.Instructions)
	assert.Equal(t, domain.FormatWAV, req.Format)
	assert.Equal(t, "gpt-4o-mini-tts", req.Model)

	assert.Equal(t, req.Input, out.InputScript)
	assert.Equal(t, req.Instructions, out.Instructions)
	assert.Equal(t, domain.FormatWAV, out.Format)
	assert.False(t, out.GeneratedAt.IsZero())
	assert.Equal(t, []string{"synthesis:alice"}, lim.keys)
}

func TestGenerate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      usecase.GenerateInput
		limiter *stubLimiter
		synth   *stubSynth
		wantErr error
		calls   int
	}{
		{name: "unknown voice", in: usecase.GenerateInput{Script: "Hi.", Voice: "robot"}, wantErr: domain.ErrInvalidArgument},
		{name: "empty after sanitization", in: usecase.GenerateInput{Script: "你好\u200b", Voice: "alloy"}, wantErr: domain.ErrInvalidArgument},
		{name: "blank script", in: usecase.GenerateInput{Script: "", Voice: "alloy"}, wantErr: domain.ErrInvalidArgument},
		{name: "rate limited", in: usecase.GenerateInput{Script: "Hi.", Voice: "alloy"}, limiter: &stubLimiter{allowed: false}, wantErr: domain.ErrRateLimited},
		{name: "upstream failure", in: usecase.GenerateInput{Script: "Hi.", Voice: "alloy"}, synth: &stubSynth{err: domain.ErrUpstreamTimeout}, wantErr: domain.ErrUpstreamTimeout, calls: 1},
		{name: "limiter error fails open", in: usecase.GenerateInput{Script: "Hi.", Voice: "alloy"}, limiter: &stubLimiter{err: errors.New("redis down")}, calls: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			synth := tt.synth
			if synth == nil {
				synth = &stubSynth{}
			}
			var lim domain.RateLimiter
			if tt.limiter != nil {
				lim = tt.limiter
			}
			svc := usecase.NewGenerateService(synth, nil, lim, usecase.GenerateConfig{})
			_, err := svc.Generate(context.Background(), "bob", tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, synth.calls, tt.calls)
		})
	}
}

func TestGenerate_DefaultsVoiceAndFormat(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	svc := usecase.NewGenerateService(synth, nil, nil, usecase.GenerateConfig{})
	out, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{Script: "Hello."})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVoice, out.Voice)
	assert.Equal(t, domain.FormatMP3, out.Format)
	assert.Empty(t, synth.calls[0].Instructions)
}

func TestGenerate_BoundsLengths(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	svc := usecase.NewGenerateService(synth, nil, nil, usecase.GenerateConfig{MaxInputLength: 50, MaxPromptLength: 20})
	script := strings.Repeat("word ", 40)
	_, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{
		Script:    script,
		Voice:     "echo",
		Direction: domain.VoiceDirection{CustomInstructions: strings.Repeat("calm ", 20)},
	})
	require.NoError(t, err)
	req := synth.calls[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(req.Input), 53)
	assert.True(t, strings.HasSuffix(req.Input, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(req.Instructions), 23)
}

func TestGenerate_TokenBudgetShrinksScript(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	svc := usecase.NewGenerateService(synth, wordCounter{}, nil, usecase.GenerateConfig{MaxInputLength: 4096, MaxInputTokens: 25})
	_, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{Script: strings.Repeat("Sentence here. ", 40), Voice: "sage"})
	require.NoError(t, err)
	n, _ := wordCounter{}.CountTokens(synth.calls[0].Input, "")
	assert.LessOrEqual(t, n, 25)
}

func TestGenerate_TokenCounterErrorKeepsCharacterBound(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	svc := usecase.NewGenerateService(synth, wordCounter{err: errors.New("no encoding")}, nil, usecase.GenerateConfig{MaxInputTokens: 1})
	_, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{Script: "Short and sweet.", Voice: "ash"})
	require.NoError(t, err)
	assert.Equal(t, "Short and sweet.", synth.calls[0].Input)
}

// overheadCounter charges a fixed cost per request on top of a per-rune
// cost, so proportional shrinking undershoots and needs several passes.
type overheadCounter struct{ perRune, fixed int }

func (c overheadCounter) CountTokens(text, _ string) (int, error) {
	return utf8.RuneCountInString(text)*c.perRune + c.fixed, nil
}

func TestGenerate_TokenBudgetKeepsShrinkingUntilItFits(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	counter := overheadCounter{perRune: 2, fixed: 50}
	svc := usecase.NewGenerateService(synth, counter, nil, usecase.GenerateConfig{MaxInputTokens: 60})

	_, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{Script: strings.Repeat("Sentence here. ", 30), Voice: "verse"})
	require.NoError(t, err)
	require.Len(t, synth.calls, 1)
	n, _ := counter.CountTokens(synth.calls[0].Input, "")
	assert.LessOrEqual(t, n, 60)
	assert.NotEmpty(t, synth.calls[0].Input)
}

func TestGenerate_TokenBudgetUnreachableIsRejected(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	svc := usecase.NewGenerateService(synth, overheadCounter{fixed: 1000}, nil, usecase.GenerateConfig{MaxInputTokens: 100})

	_, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{Script: strings.Repeat("Sentence here. ", 30), Voice: "verse"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "token budget")
	assert.Empty(t, synth.calls)
}

func TestGenerate_RateLimitedCarriesRetryAfter(t *testing.T) {
	t.Parallel()
	synth := &stubSynth{}
	svc := usecase.NewGenerateService(synth, nil, &stubLimiter{allowed: false}, usecase.GenerateConfig{})

	_, err := svc.Generate(context.Background(), "u", usecase.GenerateInput{Script: "Hi.", Voice: "alloy"})
	require.ErrorIs(t, err, domain.ErrRateLimited)
	var ra *domain.RetryAfterError
	require.ErrorAs(t, err, &ra)
	assert.Equal(t, 30*time.Second, ra.After)
	assert.Empty(t, synth.calls)
}
