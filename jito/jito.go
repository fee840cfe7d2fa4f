// Package jito submits transactions as MEV-protected bundles to a Jito
// block-engine endpoint and polls for landing.
package jito

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
)

// Region selects a Jito block-engine endpoint.
type Region string

const (
	RegionMainnet    Region = "mainnet" // auto-balanced
	RegionNY         Region = "ny"
	RegionAmsterdam  Region = "amsterdam"
	RegionFrankfurt  Region = "frankfurt"
	RegionTokyo      Region = "tokyo"
	RegionSingapore  Region = "singapore"
	RegionSLC        Region = "slc"
)

// regionEndpoints is the fixed region-to-endpoint map.
var regionEndpoints = map[Region]string{
	RegionMainnet:   "https://mainnet.block-engine.jito.wtf",
	RegionNY:        "https://ny.mainnet.block-engine.jito.wtf",
	RegionAmsterdam: "https://amsterdam.mainnet.block-engine.jito.wtf",
	RegionFrankfurt: "https://frankfurt.mainnet.block-engine.jito.wtf",
	RegionTokyo:     "https://tokyo.mainnet.block-engine.jito.wtf",
	RegionSingapore: "https://singapore.mainnet.block-engine.jito.wtf",
	RegionSLC:       "https://slc.mainnet.block-engine.jito.wtf",
}

// Status is a bundle's terminal or in-flight state.
type Status string

const (
	StatusPending Status = "pending"
	StatusLanded  Status = "landed"
	StatusFailed  Status = "failed"
	StatusDropped Status = "dropped"
)

// Client submits bundles to a Jito block-engine endpoint using its
// JSON-RPC-over-HTTP API. There is no typed Go SDK for this API, so requests
// and responses are framed by hand, the same plain net/http-plus-encoding/json
// shape used for other bespoke JSON-RPC services.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Jito client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SubmitBundle sends the (optionally tip-preceded) transaction set to the
// block engine for the given region and returns its bundle ID.
//
// wireBytesList holds one or more base64-encodable serialized transactions;
// a caller building a tip + target bundle passes the tip transaction first.
func (c *Client) SubmitBundle(ctx context.Context, region Region, wireBytesList [][]byte) (string, error) {
	endpoint, ok := regionEndpoints[region]
	if !ok {
		return "", fmt.Errorf("jito: unknown region %q", region)
	}

	encoded := make([]string, len(wireBytesList))
	for i, w := range wireBytesList {
		encoded[i] = base64.StdEncoding.EncodeToString(w)
	}

	resp, err := c.call(ctx, endpoint, "sendBundle", []interface{}{encoded, map[string]string{"encoding": "base64"}})
	if err != nil {
		return "", err
	}

	var bundleID string
	if err := json.Unmarshal(resp, &bundleID); err != nil {
		return "", fmt.Errorf("jito: decode bundle id: %w", err)
	}
	return bundleID, nil
}

// BundleStatus is one bundle-status poll result.
type BundleStatus struct {
	BundleID  string
	Status    Status
	Signature string // landing signature, set once Status == StatusLanded
}

// GetBundleStatus polls the block engine for a bundle's current state.
func (c *Client) GetBundleStatus(ctx context.Context, region Region, bundleID string) (*BundleStatus, error) {
	endpoint, ok := regionEndpoints[region]
	if !ok {
		return nil, fmt.Errorf("jito: unknown region %q", region)
	}

	resp, err := c.call(ctx, endpoint, "getBundleStatuses", []interface{}{[]string{bundleID}})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Value []struct {
			BundleID           string   `json:"bundle_id"`
			Transactions       []string `json:"transactions"`
			ConfirmationStatus string   `json:"confirmation_status"`
			Err                *struct {
				Ok interface{} `json:"Ok"`
			} `json:"err"`
		} `json:"value"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("jito: decode bundle status: %w", err)
	}
	if len(parsed.Value) == 0 {
		return &BundleStatus{BundleID: bundleID, Status: StatusPending}, nil
	}

	v := parsed.Value[0]
	status := StatusPending
	switch v.ConfirmationStatus {
	case "confirmed", "finalized":
		status = StatusLanded
	case "failed":
		status = StatusFailed
	case "":
		if v.BundleID == "" {
			status = StatusDropped
		}
	}

	var sig string
	if len(v.Transactions) > 0 {
		sig = v.Transactions[0]
	}

	return &BundleStatus{BundleID: bundleID, Status: status, Signature: sig}, nil
}

func (c *Client) call(ctx context.Context, endpoint, method string, params []interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("jito: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/api/v1/bundles", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("jito: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jito: request %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jito: read response: %w", err)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("jito: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("jito: %s failed: %s (code %d)", method, parsed.Error.Message, parsed.Error.Code)
	}
	return parsed.Result, nil
}

// DecodeSignature turns a bundle's landing signature string back into raw
// bytes so callers can correlate it with a solana.Signature.
func DecodeSignature(s string) ([]byte, error) {
	return base58.Decode(s)
}
