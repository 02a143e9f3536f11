package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewProvider builds the configured provider wrapped as
// caller → timeout → retry → logging → base.
func NewProvider(ctx context.Context, cfg Config, recorder RequestRecorder, logger *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg)
	case ProviderOpenAI, ProviderOpenRouter:
		base, err = NewOpenAIProvider(cfg)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := WithLogging(base, cfg.Provider, recorder, logger)
	p = WithRetry(p, cfg.Retry)
	return WithTimeout(p, cfg.Timeout), nil
}
