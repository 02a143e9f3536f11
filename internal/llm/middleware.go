package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/store"
)

// RequestRecorder persists one row per provider call.
type RequestRecorder interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

type loggingProvider struct {
	inner    Provider
	name     string
	recorder RequestRecorder
	logger   *zap.Logger
}

// WithLogging records every call made through p. A nil recorder only logs.
func WithLogging(p Provider, providerName string, recorder RequestRecorder, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggingProvider{inner: p, name: providerName, recorder: recorder, logger: logger}
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:  l.name,
		Model:     l.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		data.Model = resp.Model
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	fields := []zap.Field{
		zap.String("provider", data.Provider),
		zap.String("model", data.Model),
		zap.String("purpose", data.Purpose),
		zap.Int64("latency_ms", data.LatencyMs),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
	}
	if cost := LookupCost(data.Model); cost != nil {
		fields = append(fields, zap.Float64("cost_usd", cost.Cost(data.InputTokens, data.OutputTokens)))
	}
	if err != nil {
		l.logger.Warn("llm request failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Debug("llm request", fields...)
	}

	if l.recorder != nil {
		if recErr := l.recorder.AppendLLMRequest(ctx, data); recErr != nil {
			l.logger.Warn("record llm request", zap.Error(recErr))
		}
	}
	return resp, err
}

type retryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry retries transient failures with exponential backoff and
// jitter. Invalid responses get a single retry; truncation and context
// errors are returned at once.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &retryProvider{inner: p, config: cfg}
}

func (r *retryProvider) ModelID() string { return r.inner.ModelID() }

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		lastErr     error
		invalidSeen bool
	)
	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err, &invalidSeen) || attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return nil, lastErr
}

func retryable(err error, invalidSeen *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		if *invalidSeen {
			return false
		}
		*invalidSeen = true
	}
	return true
}

func (r *retryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = min(wait, float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(max(wait, 0))
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout bounds each Generate call, retries included.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}
