// Package validation checks learner submissions against the grammar of
// their task kind and enriches accepted input with an advisory explorer
// lookup.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/explorer"
)

// DefaultTimeout bounds the advisory lookup.
const DefaultTimeout = 5 * time.Second

// Service validates submissions. The zero value is not usable; use
// NewService.
type Service struct {
	lookup  explorer.Lookup
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the advisory lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. A nil lookup disables advisory checks.
func NewService(lookup explorer.Lookup, opts ...Option) *Service {
	if lookup == nil {
		lookup = explorer.Disabled{}
	}
	s := &Service{
		lookup:  lookup,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks raw against kind. It never returns an error: every
// failure is folded into the Result.
func (s *Service) Validate(ctx context.Context, kind Kind, raw string, vctx Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("validation panicked", zap.String("kind", string(kind)), zap.Any("panic", r))
			res = rejected("Something went wrong while checking your answer. Please try again.")
		}
	}()

	checked, err := CheckFormat(kind, raw, vctx)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			return rejected(fe.Reason)
		}
		return rejected(err.Error())
	}

	switch kind {
	case KindTransaction:
		return s.adviseTransaction(ctx, checked, vctx)
	case KindAddress:
		return s.adviseAddress(ctx, checked)
	case KindAmount:
		return amountResult(checked, vctx)
	default:
		return Result{
			Verdict: VerdictConfirmed,
			Success: true,
			Message: "Answer recorded.",
			Value:   checked.Value,
		}
	}
}

func (s *Service) adviseTransaction(ctx context.Context, checked Checked, vctx Context) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sum, err := s.lookup.Transaction(ctx, checked.Value)
	if err != nil {
		s.logAdvisory(&NetworkAdvisory{Op: "transaction", Err: err})
		msg := "Transaction ID format accepted. The explorer could not confirm it yet, which is normal for fresh testnet transactions."
		if !vctx.Profile.txIsFixed() {
			msg = "Identifier format accepted."
		}
		return Result{Verdict: VerdictUnverified, Success: true, Message: msg, Value: checked.Value}
	}

	status := "unconfirmed (in mempool)"
	if sum.Confirmed {
		status = fmt.Sprintf("confirmed in block %d", sum.BlockHeight)
	}
	return Result{
		Verdict: VerdictConfirmed,
		Success: true,
		Message: fmt.Sprintf("Transaction found: %s, %d input(s), %d output(s), fee %d sats.",
			status, sum.Inputs, sum.Outputs, sum.Fee),
		Value: checked.Value,
		Data:  sum,
	}
}

func (s *Service) adviseAddress(ctx context.Context, checked Checked) Result {
	label := "Address"
	if checked.AddressType != "" {
		label = checked.AddressType + " address"
	}

	if checked.AddressType == "invoice" {
		return Result{
			Verdict: VerdictUnverified,
			Success: true,
			Message: "Lightning invoice format accepted.",
			Value:   checked.Value,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sum, err := s.lookup.Address(ctx, checked.Value)
	if err != nil {
		s.logAdvisory(&NetworkAdvisory{Op: "address", Err: err})
		return Result{
			Verdict: VerdictUnverified,
			Success: true,
			Message: label + " format accepted.",
			Value:   checked.Value,
		}
	}
	return Result{
		Verdict: VerdictConfirmed,
		Success: true,
		Message: fmt.Sprintf("%s found: %d transaction(s), balance %d sats.", label, sum.TxCount, sum.Balance()),
		Value:   checked.Value,
		Data:    sum,
	}
}

func amountResult(checked Checked, vctx Context) Result {
	msg := fmt.Sprintf("Amount %s accepted.", checked.Value)
	if vctx.PriorValue != "" {
		msg = fmt.Sprintf("Amount %s accepted for transaction %s.", checked.Value, shortID(vctx.PriorValue))
	}
	return Result{
		Verdict: VerdictConfirmed,
		Success: true,
		Message: msg,
		Value:   checked.Value,
		Amount:  checked.Amount,
	}
}

func (s *Service) logAdvisory(adv *NetworkAdvisory) {
	level := s.logger.Info
	if errors.Is(adv, explorer.ErrDisabled) || errors.Is(adv, explorer.ErrNotFound) {
		level = s.logger.Debug
	}
	level("advisory lookup inconclusive", zap.String("op", adv.Op), zap.Error(adv.Err))
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "…" + id[len(id)-8:]
}
