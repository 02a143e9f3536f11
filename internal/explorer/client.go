package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public testnet API of mempool.space.
const DefaultBaseURL = "https://mempool.space/testnet/api"

// maxBody bounds how much of a response is read.
const maxBody = 4 << 20

// Client talks to a mempool.space-compatible REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL. An empty baseURL uses
// DefaultBaseURL. A nil httpClient gets a client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

type txResponse struct {
	TxID   string `json:"txid"`
	Size   int    `json:"size"`
	Weight int    `json:"weight"`
	Fee    int64  `json:"fee"`
	Vin    []struct {
		TxID string `json:"txid"`
	} `json:"vin"`
	Vout []struct {
		Value int64 `json:"value"`
	} `json:"vout"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
}

type statsResponse struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
	TxCount      int   `json:"tx_count"`
}

type addressResponse struct {
	Address      string        `json:"address"`
	ChainStats   statsResponse `json:"chain_stats"`
	MempoolStats statsResponse `json:"mempool_stats"`
}

// Transaction fetches GET /tx/{txid}.
func (c *Client) Transaction(ctx context.Context, txid string) (*TxSummary, error) {
	var resp txResponse
	if err := c.get(ctx, "/tx/"+url.PathEscape(txid), &resp); err != nil {
		return nil, err
	}

	sum := &TxSummary{
		TxID:        resp.TxID,
		Confirmed:   resp.Status.Confirmed,
		BlockHeight: resp.Status.BlockHeight,
		Fee:         resp.Fee,
		Size:        resp.Size,
		Weight:      resp.Weight,
		Inputs:      len(resp.Vin),
		Outputs:     len(resp.Vout),
	}
	for _, out := range resp.Vout {
		sum.TotalOut += out.Value
	}
	return sum, nil
}

// Address fetches GET /address/{addr}.
func (c *Client) Address(ctx context.Context, addr string) (*AddressSummary, error) {
	var resp addressResponse
	if err := c.get(ctx, "/address/"+url.PathEscape(addr), &resp); err != nil {
		return nil, err
	}
	return &AddressSummary{
		Address:    resp.Address,
		TxCount:    resp.ChainStats.TxCount + resp.MempoolStats.TxCount,
		FundedSats: resp.ChainStats.FundedTxoSum + resp.MempoolStats.FundedTxoSum,
		SpentSats:  resp.ChainStats.SpentTxoSum + resp.MempoolStats.SpentTxoSum,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Code: resp.StatusCode, URL: u}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
