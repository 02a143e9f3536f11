package validation

import "fmt"

// Kind selects the grammar a submission is checked against.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindAddress     Kind = "address"
	KindAmount      Kind = "amount"
	KindCustom      Kind = "custom"
)

// AllKinds returns every supported kind.
func AllKinds() []Kind {
	return []Kind{KindTransaction, KindAddress, KindAmount, KindCustom}
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown validation kind %q", s)
}

// Field distinguishes normal amount inputs from fee-style inputs,
// which accept zero.
type Field string

const (
	FieldNormal Field = "normal"
	FieldFee    Field = "fee"
)

// Verdict is the three-way outcome of a validation.
type Verdict string

const (
	// VerdictConfirmed means the format is valid and the explorer knows the record.
	VerdictConfirmed Verdict = "confirmed"
	// VerdictUnverified means the format is valid but the advisory check
	// did not confirm it (unavailable, timed out, not indexed, or disabled).
	VerdictUnverified Verdict = "unverified"
	// VerdictRejected means the input failed the local format check.
	VerdictRejected Verdict = "rejected"
)

// Accepted reports whether the verdict lets the learner complete the task.
func (v Verdict) Accepted() bool {
	return v == VerdictConfirmed || v == VerdictUnverified
}

// Context carries the per-submission information the rules depend on.
type Context struct {
	ModuleID string
	Profile  Profile
	Field    Field

	// PriorValue is a value validated by an earlier task of the same
	// module (the last accepted transaction id), used to word messages.
	PriorValue string
}

// Result is what the learner sees after a submission.
type Result struct {
	Verdict Verdict `json:"verdict"`
	Success bool    `json:"success"`
	Message string  `json:"message"`

	// Value is the normalised input (lower-cased txid, trimmed text).
	Value string `json:"value,omitempty"`

	// Amount is set for accepted amount submissions.
	Amount *float64 `json:"amount,omitempty"`

	// Data holds explorer details for display only.
	Data any `json:"data,omitempty"`
}

func rejected(msg string) Result {
	return Result{Verdict: VerdictRejected, Success: false, Message: msg}
}

// Reject builds a rejected result with the given message.
func Reject(msg string) Result {
	return rejected(msg)
}
