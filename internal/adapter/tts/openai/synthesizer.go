// Package openai implements domain.Synthesizer on the OpenAI speech endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/config"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	obsctx "github.com/fairyhunter13/ai-voice-studio/internal/observability"
)

const (
	providerName = "openai"
	// maxAudioBytes bounds a single rendered clip.
	maxAudioBytes = 64 << 20
)

// Synthesizer calls POST {base}/audio/speech with retries and a circuit breaker.
type Synthesizer struct {
	cfg     config.Config
	hc      *http.Client
	breaker *observability.CircuitBreaker
}

// New constructs a synthesizer. Outbound requests are traced through otelhttp.
func New(cfg config.Config) *Synthesizer {
	return NewWithClient(cfg, &http.Client{
		Timeout:   cfg.TTSTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWithClient lets tests inject an HTTP client.
func NewWithClient(cfg config.Config, hc *http.Client) *Synthesizer {
	breaker := observability.NewCircuitBreaker("tts_"+providerName, 5, 30*time.Second).
		WithIgnore(func(err error) bool { return errors.Is(err, domain.ErrInvalidArgument) })
	return &Synthesizer{cfg: cfg, hc: hc, breaker: breaker}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
	Instructions   string `json:"instructions,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (s *Synthesizer) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := s.cfg.GetTTSBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// Synthesize renders req and returns the audio bytes.
func (s *Synthesizer) Synthesize(ctx domain.Context, req domain.SynthesisRequest) (domain.Audio, error) {
	if s.cfg.OpenAIAPIKey == "" {
		return domain.Audio{}, fmt.Errorf("op=tts.synthesize: %w: OPENAI_API_KEY missing", domain.ErrInternal)
	}
	model := req.Model
	if model == "" {
		model = s.cfg.TTSModel
	}
	format := req.Format
	if format == "" {
		format = domain.FormatMP3
	}
	body, err := json.Marshal(speechRequest{
		Model:          model,
		Input:          req.Input,
		Voice:          string(req.Voice),
		ResponseFormat: string(format),
		Instructions:   req.Instructions,
	})
	if err != nil {
		return domain.Audio{}, fmt.Errorf("op=tts.synthesize: %w", err)
	}

	lg := obsctx.LoggerFromContext(ctx)
	endpoint := strings.TrimRight(s.cfg.OpenAIBaseURL, "/") + "/audio/speech"
	var audio domain.Audio
	attempt := 0

	op := func() error {
		attempt++
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+s.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := s.hc.Do(r)
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return s.statusError(lg, resp, attempt)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
		if err != nil {
			return fmt.Errorf("%w: read audio: %v", domain.ErrUpstream, err)
		}
		if len(data) == 0 {
			return fmt.Errorf("%w: empty audio response", domain.ErrUpstream)
		}
		if len(data) > maxAudioBytes {
			return backoff.Permanent(fmt.Errorf("%w: audio exceeds %d bytes", domain.ErrUpstream, maxAudioBytes))
		}
		ct := resp.Header.Get("Content-Type")
		if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
			ct = format.ContentType()
		}
		audio = domain.Audio{Data: data, Format: format, ContentType: ct}
		return nil
	}

	start := time.Now()
	err = s.breaker.Call(func() error {
		return backoff.Retry(op, backoff.WithContext(s.getBackoffConfig(), ctx))
	})
	if err != nil {
		if errors.Is(err, observability.ErrCircuitOpen) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		lg.Error("speech synthesis failed",
			slog.String("provider", providerName),
			slog.String("model", model),
			slog.String("voice", string(req.Voice)),
			slog.Int("attempts", attempt),
			slog.Any("error", err))
		return domain.Audio{}, fmt.Errorf("op=tts.synthesize: %w", err)
	}
	lg.Info("speech synthesized",
		slog.String("provider", providerName),
		slog.String("model", model),
		slog.String("voice", string(req.Voice)),
		slog.String("format", string(format)),
		slog.Int("input_chars", len(req.Input)),
		slog.Int("audio_bytes", len(audio.Data)),
		slog.Int("attempts", attempt),
		slog.Duration("duration", time.Since(start)))
	return audio, nil
}

// statusError classifies a non-2xx response. 429 and 5xx are retried;
// other 4xx are permanent.
func (s *Synthesizer) statusError(lg *slog.Logger, resp *http.Response, attempt int) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(snippet))
	var ae apiError
	if json.Unmarshal(snippet, &ae) == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
	}
	attrs := []any{
		slog.String("provider", providerName),
		slog.Int("status", resp.StatusCode),
		slog.Int("attempt", attempt),
		slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
		slog.String("body", msg),
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		lg.Warn("tts provider rate limited", attrs...)
		return fmt.Errorf("%w: %s", domain.ErrUpstreamRateLimit, msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		lg.Warn("tts provider rejected input", attrs...)
		return backoff.Permanent(fmt.Errorf("%w: provider rejected input: %s", domain.ErrInvalidArgument, msg))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		lg.Error("tts provider 4xx", attrs...)
		return backoff.Permanent(fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, resp.StatusCode, msg))
	default:
		lg.Error("tts provider non-2xx", attrs...)
		return fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, resp.StatusCode, msg)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
