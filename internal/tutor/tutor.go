// Package tutor asks a language model to explain a task to a learner who
// is stuck after every authored hint.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/llm"
)

// ErrNotEligible is returned when the learner has not yet exhausted the
// authored help.
var ErrNotEligible = errors.New("tutor: not eligible yet")

// Config holds generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64

	// MinFailures is the number of failed attempts required before the
	// tutor may be asked.
	MinFailures int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{MaxTokens: 400, Temperature: 0.4, MinFailures: 3}
}

// Input describes the task the learner is stuck on.
type Input struct {
	ModuleTitle  string
	TaskTitle    string
	Instructions string
	Kind         string
	Hints        []string
	LastInput    string
	LastMessage  string
	Failures     int
}

// Explanation is the tutor's answer.
type Explanation struct {
	Explanation string `json:"explanation"`
	NextStep    string `json:"next_step"`
}

// Service generates explanations. Results of asynchronous requests are
// held per key until consumed.
type Service struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	done   bool
	result Result
}

// Result is the outcome of an asynchronous request.
type Result struct {
	Explanation *Explanation
	Err         error
}

// New creates a tutor service.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Service {
	if cfg.MinFailures <= 0 {
		cfg.MinFailures = DefaultConfig().MinFailures
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, cfg: cfg, logger: logger, slots: make(map[string]*slot)}
}

// Eligible reports whether a learner who has seen hintsShown of hintsTotal
// hints and failed failures times may ask the tutor.
func (s *Service) Eligible(hintsShown, hintsTotal, failures int) bool {
	return hintsShown >= hintsTotal && failures >= s.cfg.MinFailures
}

// Explain generates an explanation synchronously.
func (s *Service) Explain(ctx context.Context, in Input) (*Explanation, error) {
	ctx = llm.WithPurpose(ctx, "tutor")
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(in)}},
		Schema:      ExplanationSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("tutor explanation: %w", err)
	}

	var out Explanation
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse tutor response: %w", err)
	}
	return &out, nil
}

// Request starts generating an explanation for key in the background. A
// request already in flight for key is left alone.
func (s *Service) Request(ctx context.Context, key string, in Input) bool {
	s.mu.Lock()
	if sl, ok := s.slots[key]; ok && !sl.done {
		s.mu.Unlock()
		return false
	}
	sl := &slot{}
	s.slots[key] = sl
	s.mu.Unlock()

	go func() {
		exp, err := s.Explain(ctx, in)
		if err != nil {
			s.logger.Warn("tutor request failed", zap.String("key", key), zap.Error(err))
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		sl.result, sl.done = Result{Explanation: exp, Err: err}, true
	}()
	return true
}

// Pending reports whether a request for key is in flight.
func (s *Service) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	return ok && !sl.done
}

// Consume returns the finished result for key and clears the slot. ok is
// false while nothing has finished.
func (s *Service) Consume(key string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, found := s.slots[key]
	if !found || !sl.done {
		return Result{}, false
	}
	delete(s.slots, key)
	return sl.result, true
}

// ExplanationSchema is the structured output requested from the model.
var ExplanationSchema = &llm.Schema{
	Name:        "task-explanation",
	Description: "A short explanation of a Bitcoin testnet task and the next concrete step",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{
				"type":        "string",
				"description": "What the task asks for and why the last answer did not fit (3-5 sentences)",
			},
			"next_step": map[string]any{
				"type":        "string",
				"description": "One concrete action the learner can take now",
			},
		},
		"required":             []any{"explanation", "next_step"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You are a patient Bitcoin tutor helping a learner complete hands-on testnet exercises. Never invent transaction ids, addresses or amounts. Explain what the exercise expects and point to the next concrete step.`

func buildUserMessage(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n", in.ModuleTitle)
	fmt.Fprintf(&b, "Task: %s\n", in.TaskTitle)
	fmt.Fprintf(&b, "Expected input: %s\n", in.Kind)
	if in.Instructions != "" {
		fmt.Fprintf(&b, "Instructions:\n%s\n", in.Instructions)
	}
	if len(in.Hints) > 0 {
		b.WriteString("\nHints already shown:\n")
		for _, h := range in.Hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	fmt.Fprintf(&b, "\nFailed attempts: %d\n", in.Failures)
	if in.LastInput != "" {
		fmt.Fprintf(&b, "Last answer: %s\n", in.LastInput)
	}
	if in.LastMessage != "" {
		fmt.Fprintf(&b, "Feedback on last answer: %s\n", in.LastMessage)
	}
	b.WriteString("\nDo not repeat the hints word for word. Keep it under 120 words.")
	return b.String()
}
