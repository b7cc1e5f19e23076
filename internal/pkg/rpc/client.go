// Copyright 2022 Metrika Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// MethodBlockNumber JSON-RPC method returning the latest block height
	MethodBlockNumber = "eth_blockNumber"

	defaultTimeout = 10 * time.Second

	// maxBodyBytes caps the response body read from a node.
	maxBodyBytes = 1 << 20
)

var (
	// ErrRPCResult response carried no usable result
	ErrRPCResult = errors.New("invalid rpc result")

	// ErrRPCStatus node answered with a non-200 status
	ErrRPCStatus = errors.New("unexpected rpc status")
)

// Request JSON-RPC 2.0 request body.
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// Response JSON-RPC 2.0 response body.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Error JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ClientConf Client configuration struct.
type ClientConf struct {
	// URL node JSON-RPC endpoint
	URL string

	// Timeout bounds a single call, including reading the body.
	Timeout time.Duration

	// HTTPClient overrides the default client (only used by tests)
	HTTPClient *http.Client
}

// Client is a minimal Ethereum JSON-RPC client over HTTP.
type Client struct {
	ClientConf
}

// NewClient Client constructor.
func NewClient(conf ClientConf) *Client {
	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}

	if conf.HTTPClient == nil {
		conf.HTTPClient = &http.Client{}
	}

	return &Client{ClientConf: conf}
}

// Call sends a single request and returns the raw result member.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if params == nil {
		params = []interface{}{}
	}

	body, err := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "invalid rpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get block number from %s", c.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrRPCStatus, "failed to get block number from %s: status %d", c.URL, resp.StatusCode)
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read rpc response")
	}

	var rpcResp Response
	if err := json.Unmarshal(out, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "parse rpc response")
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, errors.Wrap(ErrRPCResult, "missing result")
	}

	return rpcResp.Result, nil
}

// BlockNumber returns the node's latest block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.Call(ctx, MethodBlockNumber)
	if err != nil {
		return 0, err
	}

	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, errors.Wrapf(ErrRPCResult, "result is not a string: %s", raw)
	}

	return ParseHexUint(hex)
}

// ParseHexUint decodes a 0x-prefixed quantity.
func ParseHexUint(s string) (uint64, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == s || digits == "" {
		return 0, errors.Wrapf(ErrRPCResult, "not a hex quantity: %q", s)
	}

	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrRPCResult, "not a hex quantity: %q", s)
	}

	return n, nil
}
