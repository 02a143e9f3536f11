package tutor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/satslab/satslab/internal/llm"
)

func validExplanation() json.RawMessage {
	return json.RawMessage(`{
		"explanation": "The task wants the transaction id of your faucet payment, not your address.",
		"next_step": "Open your wallet's history and copy the 64-character id."
	}`)
}

func testInput() Input {
	return Input{
		ModuleTitle: "Wallets",
		TaskTitle:   "Find your funding transaction",
		Kind:        "transaction",
		Hints:       []string{"Look in your wallet history.", "It is 64 hex characters."},
		LastInput:   "tb1qexample",
		LastMessage: "The transaction ID must be exactly 64 hexadecimal characters (0-9, a-f).",
		Failures:    4,
	}
}

func TestExplain(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: validExplanation()})
	svc := New(mock, DefaultConfig(), nil)

	exp, err := svc.Explain(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !strings.Contains(exp.NextStep, "64-character") {
		t.Errorf("NextStep = %q", exp.NextStep)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	msg := calls[0].Messages[0].Content
	for _, want := range []string{"Wallets", "Failed attempts: 4", "tb1qexample", "It is 64 hex characters."} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if calls[0].Schema != ExplanationSchema {
		t.Error("request did not carry the explanation schema")
	}
}

func TestExplain_InvalidResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"explanation":"only half"}`)})
	svc := New(mock, DefaultConfig(), nil)
	if _, err := svc.Explain(context.Background(), testInput()); err == nil {
		t.Error("expected error for response missing next_step")
	}
}

func TestEligible(t *testing.T) {
	svc := New(llm.NewMockProvider(), DefaultConfig(), nil)
	tests := []struct {
		shown, total, failures int
		want                   bool
	}{
		{2, 2, 3, true},
		{1, 2, 5, false},
		{2, 2, 2, false},
		{0, 0, 3, true},
	}
	for _, tt := range tests {
		if got := svc.Eligible(tt.shown, tt.total, tt.failures); got != tt.want {
			t.Errorf("Eligible(%d, %d, %d) = %v, want %v", tt.shown, tt.total, tt.failures, got, tt.want)
		}
	}
}

func TestRequestAndConsume(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: validExplanation()})
	svc := New(mock, DefaultConfig(), nil)

	if _, ok := svc.Consume("wallets/0"); ok {
		t.Fatal("Consume() before Request returned ok")
	}
	if !svc.Request(t.Context(), "wallets/0", testInput()) {
		t.Fatal("Request() = false")
	}

	var (
		res Result
		ok  bool
	)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, ok = svc.Consume("wallets/0")
		if ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ok || res.Err != nil || res.Explanation == nil {
		t.Fatalf("Consume() = %+v, %v", res, ok)
	}
	if _, ok := svc.Consume("wallets/0"); ok {
		t.Error("slot not cleared after Consume")
	}
	if svc.Pending("wallets/0") {
		t.Error("Pending() = true after Consume")
	}
}

func TestRequest_FailureIsDelivered(t *testing.T) {
	svc := New(llm.NewMockProvider(), DefaultConfig(), nil)
	svc.Request(t.Context(), "k", testInput())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, ok := svc.Consume("k")
		if ok {
			if res.Err == nil || res.Explanation != nil {
				t.Errorf("Consume() = %+v, want error", res)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("request never finished")
}
