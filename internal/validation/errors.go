package validation

import "fmt"

// FormatError reports input whose shape is wrong. It is always detected
// locally and always rejects the submission.
type FormatError struct {
	Kind   Kind
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

// NetworkAdvisory reports a failed or inconclusive explorer lookup.
// It never rejects a submission; it only changes the message wording.
type NetworkAdvisory struct {
	Op  string
	Err error
}

func (e *NetworkAdvisory) Error() string {
	return fmt.Sprintf("advisory %s: %v", e.Op, e.Err)
}

func (e *NetworkAdvisory) Unwrap() error { return e.Err }
