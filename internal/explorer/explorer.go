// Package explorer looks up transactions and addresses on a block
// explorer. Lookups are advisory: callers use them to enrich feedback and
// never to reject input.
package explorer

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the explorer does not know the record.
	ErrNotFound = errors.New("explorer: not found")

	// ErrDisabled is returned by the Disabled lookup.
	ErrDisabled = errors.New("explorer: lookups disabled")
)

// StatusError reports a non-2xx response other than 404.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("explorer: HTTP %d for %s", e.Code, e.URL)
}

// TxSummary is the subset of a transaction shown to the learner.
type TxSummary struct {
	TxID        string `json:"txid"`
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height,omitempty"`
	Fee         int64  `json:"fee"`
	Size        int    `json:"size"`
	Weight      int    `json:"weight"`
	Inputs      int    `json:"inputs"`
	Outputs     int    `json:"outputs"`
	TotalOut    int64  `json:"total_out"`
}

// AddressSummary is the subset of an address record shown to the learner.
type AddressSummary struct {
	Address    string `json:"address"`
	TxCount    int    `json:"tx_count"`
	FundedSats int64  `json:"funded_sats"`
	SpentSats  int64  `json:"spent_sats"`
}

// Balance returns the confirmed plus mempool balance in satoshis.
func (a *AddressSummary) Balance() int64 {
	return a.FundedSats - a.SpentSats
}

// Lookup fetches explorer records.
type Lookup interface {
	Transaction(ctx context.Context, txid string) (*TxSummary, error)
	Address(ctx context.Context, addr string) (*AddressSummary, error)
}

// Disabled is a Lookup for offline mode.
type Disabled struct{}

func (Disabled) Transaction(context.Context, string) (*TxSummary, error) {
	return nil, ErrDisabled
}

func (Disabled) Address(context.Context, string) (*AddressSummary, error) {
	return nil, ErrDisabled
}
