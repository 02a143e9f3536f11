package validation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/satslab/satslab/internal/explorer"
)

type stubLookup struct {
	tx      *explorer.TxSummary
	addr    *explorer.AddressSummary
	err     error
	delay   time.Duration
	txCalls int
	panics  bool
}

func (s *stubLookup) Transaction(ctx context.Context, _ string) (*explorer.TxSummary, error) {
	s.txCalls++
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func (s *stubLookup) Address(_ context.Context, _ string) (*explorer.AddressSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.addr, nil
}

func TestValidateTransactionAcceptedRegardlessOfRemote(t *testing.T) {
	lookups := map[string]explorer.Lookup{
		"found":    &stubLookup{tx: &explorer.TxSummary{TxID: sampleTxID, Confirmed: true, BlockHeight: 10, Fee: 150}},
		"notfound": &stubLookup{err: explorer.ErrNotFound},
		"status":   &stubLookup{err: &explorer.StatusError{Code: 503}},
		"disabled": explorer.Disabled{},
	}
	for name, l := range lookups {
		t.Run(name, func(t *testing.T) {
			svc := NewService(l)
			res := svc.Validate(context.Background(), KindTransaction, sampleTxID, standardCtx())
			if !res.Success {
				t.Fatalf("Success = false, message %q", res.Message)
			}
			if res.Value != sampleTxID {
				t.Errorf("Value = %q, want %q", res.Value, sampleTxID)
			}
		})
	}
}

func TestValidateTransactionVerdicts(t *testing.T) {
	found := NewService(&stubLookup{tx: &explorer.TxSummary{Confirmed: true, BlockHeight: 42, Fee: 150, Inputs: 1, Outputs: 2}})
	res := found.Validate(context.Background(), KindTransaction, sampleTxID, standardCtx())
	if res.Verdict != VerdictConfirmed {
		t.Errorf("Verdict = %q, want %q", res.Verdict, VerdictConfirmed)
	}
	if !strings.Contains(res.Message, "block 42") || !strings.Contains(res.Message, "150 sats") {
		t.Errorf("Message = %q, want block height and fee", res.Message)
	}
	if res.Data == nil {
		t.Error("Data = nil, want explorer summary")
	}

	missing := NewService(&stubLookup{err: explorer.ErrNotFound})
	res = missing.Validate(context.Background(), KindTransaction, sampleTxID, standardCtx())
	if res.Verdict != VerdictUnverified {
		t.Errorf("Verdict = %q, want %q", res.Verdict, VerdictUnverified)
	}
	if !strings.Contains(res.Message, "format accepted") {
		t.Errorf("Message = %q, want generic format accepted", res.Message)
	}
	if res.Data != nil {
		t.Errorf("Data = %v, want nil", res.Data)
	}
}

func TestValidateTransactionRejected(t *testing.T) {
	stub := &stubLookup{}
	svc := NewService(stub)
	res := svc.Validate(context.Background(), KindTransaction, "xyz", standardCtx())
	if res.Success || res.Verdict != VerdictRejected {
		t.Fatalf("got %+v, want rejected", res)
	}
	if !strings.Contains(res.Message, "64 hexadecimal characters") {
		t.Errorf("Message = %q, want 64 hexadecimal characters", res.Message)
	}
	if stub.txCalls != 0 {
		t.Errorf("lookup called %d times for malformed input, want 0", stub.txCalls)
	}
}

func TestValidateTimeoutIsAdvisory(t *testing.T) {
	svc := NewService(&stubLookup{delay: time.Second}, WithTimeout(10*time.Millisecond))
	start := time.Now()
	res := svc.Validate(context.Background(), KindTransaction, sampleTxID, standardCtx())
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Validate took %v, want bounded by timeout", time.Since(start))
	}
	if res.Verdict != VerdictUnverified || !res.Success {
		t.Errorf("got %+v, want unverified success", res)
	}
}

func TestValidateRecoversFromPanic(t *testing.T) {
	svc := NewService(&stubLookup{panics: true})
	res := svc.Validate(context.Background(), KindTransaction, sampleTxID, standardCtx())
	if res.Success {
		t.Errorf("Success = true after panic, want false")
	}
}

func TestValidateAddress(t *testing.T) {
	svc := NewService(&stubLookup{addr: &explorer.AddressSummary{TxCount: 3, FundedSats: 900, SpentSats: 400}})
	res := svc.Validate(context.Background(), KindAddress, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", standardCtx())
	if res.Verdict != VerdictConfirmed {
		t.Fatalf("Verdict = %q, want confirmed", res.Verdict)
	}
	if !strings.Contains(res.Message, "P2WPKH") || !strings.Contains(res.Message, "500 sats") {
		t.Errorf("Message = %q", res.Message)
	}

	offline := NewService(nil)
	res = offline.Validate(context.Background(), KindAddress, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", standardCtx())
	if res.Verdict != VerdictUnverified || !res.Success {
		t.Errorf("got %+v, want unverified success", res)
	}

	res = offline.Validate(context.Background(), KindAddress, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", standardCtx())
	if res.Success {
		t.Error("mainnet address accepted")
	}
}

func TestValidateAmount(t *testing.T) {
	svc := NewService(nil)

	res := svc.Validate(context.Background(), KindAmount, "0.005", standardCtx())
	if !res.Success || res.Amount == nil || *res.Amount != 0.005 {
		t.Fatalf("got %+v, want accepted 0.005", res)
	}

	res = svc.Validate(context.Background(), KindAmount, "-1", standardCtx())
	if res.Success {
		t.Error("-1 accepted in normal context")
	}

	fee := standardCtx()
	fee.Field = FieldFee
	res = svc.Validate(context.Background(), KindAmount, "0", fee)
	if !res.Success {
		t.Errorf("0 rejected as fee: %q", res.Message)
	}

	withPrior := standardCtx()
	withPrior.PriorValue = sampleTxID
	res = svc.Validate(context.Background(), KindAmount, "1.5", withPrior)
	if !strings.Contains(res.Message, sampleTxID[:8]) {
		t.Errorf("Message = %q, want reference to prior transaction", res.Message)
	}
}

func TestValidateCustom(t *testing.T) {
	svc := NewService(nil)
	res := svc.Validate(context.Background(), KindCustom, "  hello ", standardCtx())
	if !res.Success || res.Value != "hello" {
		t.Errorf("got %+v", res)
	}
	res = svc.Validate(context.Background(), KindCustom, "   ", standardCtx())
	if res.Success {
		t.Error("empty custom answer accepted")
	}
}

func TestNetworkAdvisoryUnwrap(t *testing.T) {
	adv := &NetworkAdvisory{Op: "transaction", Err: explorer.ErrNotFound}
	if !errors.Is(adv, explorer.ErrNotFound) {
		t.Error("errors.Is(adv, ErrNotFound) = false")
	}
}

func TestVerdictAccepted(t *testing.T) {
	if !VerdictConfirmed.Accepted() || !VerdictUnverified.Accepted() || VerdictRejected.Accepted() {
		t.Error("Accepted() mismatch")
	}
}
