package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	obsctx "github.com/fairyhunter13/ai-voice-studio/internal/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-voice-studio/pkg/textx"
)

// GenerateConfig bounds what is sent to the synthesis provider.
type GenerateConfig struct {
	Model           string
	MaxInputLength  int
	MaxPromptLength int
	MaxInputTokens  int
}

// GenerateInput is a request to speak Script with Voice.
type GenerateInput struct {
	Script    string
	Voice     string
	Direction domain.VoiceDirection
	Format    domain.AudioFormat
}

// GenerateOutput carries the rendered audio and the exact parameters that
// produced it, so a client can later save the clip with them.
type GenerateOutput struct {
	Audio        domain.Audio
	InputScript  string
	Instructions string
	Voice        domain.Voice
	Format       domain.AudioFormat
	GeneratedAt  time.Time
}

// GenerateService sanitizes user text and renders it through a Synthesizer.
type GenerateService struct {
	Synth   domain.Synthesizer
	Tokens  domain.TokenCounter
	Limiter domain.RateLimiter
	Cfg     GenerateConfig
	now     func() time.Time
}

// NewGenerateService constructs a GenerateService. tokens and limiter may be nil.
func NewGenerateService(s domain.Synthesizer, tokens domain.TokenCounter, limiter domain.RateLimiter, cfg GenerateConfig) *GenerateService {
	if cfg.MaxInputLength <= 0 {
		cfg.MaxInputLength = 4096
	}
	if cfg.MaxPromptLength <= 0 {
		cfg.MaxPromptLength = 1000
	}
	return &GenerateService{Synth: s, Tokens: tokens, Limiter: limiter, Cfg: cfg, now: utcNow}
}

// Generate validates and sanitizes in, checks the caller's quota and
// synthesizes speech.
func (s *GenerateService) Generate(ctx domain.Context, userID string, in GenerateInput) (GenerateOutput, error) {
	lg := obsctx.LoggerFromContext(ctx)

	voice, ok := domain.ParseVoice(in.Voice)
	if !ok {
		return GenerateOutput{}, fmt.Errorf("%w: unknown voice %q", domain.ErrInvalidArgument, in.Voice)
	}
	format := in.Format
	if format == "" {
		format = domain.FormatMP3
	}

	script, err := textx.SanitizeForTTS(in.Script)
	if err != nil {
		observability.RecordSanitization("script", "empty")
		if errors.Is(err, textx.ErrEmptyResult) {
			return GenerateOutput{}, fmt.Errorf("%w: input script has no speakable text", domain.ErrInvalidArgument)
		}
		return GenerateOutput{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	script, err = s.boundScript(lg, script)
	if err != nil {
		return GenerateOutput{}, err
	}
	if script == "" {
		return GenerateOutput{}, fmt.Errorf("%w: input script has no speakable text", domain.ErrInvalidArgument)
	}

	prompt := textx.SanitizePrompt(in.Direction.Instructions())
	bounded := textx.ValidateTextLength(prompt, s.Cfg.MaxPromptLength)
	if bounded != prompt {
		observability.RecordSanitization("prompt", "truncated")
	} else {
		observability.RecordSanitization("prompt", "ok")
	}
	prompt = bounded

	if s.Limiter != nil {
		allowed, retryAfter, lerr := s.Limiter.Allow(ctx, ratelimiter.Key(ratelimiter.BucketSynthesis, userID), 1)
		if lerr != nil {
			lg.Warn("synthesis limiter unavailable, allowing request", slog.Any("error", lerr))
		} else if !allowed {
			return GenerateOutput{}, &domain.RetryAfterError{Err: domain.ErrRateLimited, After: retryAfter}
		}
	}

	start := time.Now()
	audio, err := s.Synth.Synthesize(ctx, domain.SynthesisRequest{
		Input:        script,
		Voice:        voice,
		Instructions: prompt,
		Format:       format,
		Model:        s.Cfg.Model,
	})
	dur := time.Since(start)
	if err != nil {
		observability.ObserveSynthesis(string(voice), synthesisOutcome(err), utf8.RuneCountInString(script), dur)
		lg.Error("synthesis failed", slog.String("voice", string(voice)), slog.Duration("duration", dur), slog.Any("error", err))
		return GenerateOutput{}, err
	}
	observability.ObserveSynthesis(string(voice), "ok", utf8.RuneCountInString(script), dur)
	lg.Info("synthesis completed",
		slog.String("voice", string(voice)),
		slog.String("format", string(audio.Format)),
		slog.Int("input_chars", utf8.RuneCountInString(script)),
		slog.Int("audio_bytes", len(audio.Data)),
		slog.Duration("duration", dur),
	)

	return GenerateOutput{
		Audio:        audio,
		InputScript:  script,
		Instructions: prompt,
		Voice:        voice,
		Format:       audio.Format,
		GeneratedAt:  s.now(),
	}, nil
}

// boundScript applies the character limit and then, when a token counter
// is configured, shrinks the limit until the script fits the token budget.
// Every pass cuts at least four characters, so the loop ends; a script that
// cannot fit at all is rejected.
func (s *GenerateService) boundScript(lg *slog.Logger, script string) (string, error) {
	bounded := textx.ValidateTextLength(script, s.Cfg.MaxInputLength)
	result := "ok"
	if bounded != script {
		result = "truncated"
	}
	defer func() { observability.RecordSanitization("script", result) }()

	if s.Tokens == nil || s.Cfg.MaxInputTokens <= 0 {
		return bounded, nil
	}
	for {
		n, err := s.Tokens.CountTokens(bounded, s.Cfg.Model)
		if err != nil {
			lg.Warn("token count failed, using character bound", slog.Any("error", err))
			return bounded, nil
		}
		if n <= s.Cfg.MaxInputTokens {
			return bounded, nil
		}
		chars := utf8.RuneCountInString(bounded)
		// the bounder may append a three character ellipsis
		limit := min(chars*s.Cfg.MaxInputTokens/n, chars-1) - 3
		if limit <= 0 {
			result = "over_budget"
			return "", fmt.Errorf("%w: input script exceeds the token budget of %d", domain.ErrInvalidArgument, s.Cfg.MaxInputTokens)
		}
		bounded = textx.ValidateTextLength(bounded, limit)
		result = "truncated"
	}
}

func synthesisOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return "rate_limited"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "rejected"
	default:
		return "error"
	}
}
