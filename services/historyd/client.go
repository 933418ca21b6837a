package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// nodeClient issues JSON-RPC queries against a vaultd node.
type nodeClient struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

func newNodeClient(url string, requestsPerSecond float64) *nodeClient {
	return &nodeClient{
		url:     url,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type vaultStateResult struct {
	Index       string `json:"index"`
	LastRefresh uint64 `json:"lastRefresh"`
	RateBps     uint64 `json:"rateBps"`
	Capacity    string `json:"capacity"`
	TotalShares string `json:"totalShares"`
}

func (c *nodeClient) call(ctx context.Context, method string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: []interface{}{}, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	decoded := rpcResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s failed: %s (code %d)", method, decoded.Error.Message, decoded.Error.Code)
	}
	return json.Unmarshal(decoded.Result, out)
}

type vaultIndexResult struct {
	Index     string `json:"index"`
	Timestamp uint64 `json:"timestamp"`
}

// vaultState fetches the current vault accounting state.
func (c *nodeClient) vaultState(ctx context.Context) (*vaultStateResult, error) {
	state := &vaultStateResult{}
	if err := c.call(ctx, "vault_getState", state); err != nil {
		return nil, err
	}
	return state, nil
}

// vaultIndex fetches the live index at the node's current clock.
func (c *nodeClient) vaultIndex(ctx context.Context) (*vaultIndexResult, error) {
	index := &vaultIndexResult{}
	if err := c.call(ctx, "vault_getIndex", index); err != nil {
		return nil, err
	}
	return index, nil
}
