// Package rpc is the JSON-RPC boundary to the ledger node.
package rpc

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/lib/httpagent"
	"gitlab.com/bunkercoin/dashboard_api/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrFetchFailed is returned for every transport, status or rpc level failure
var ErrFetchFailed = errors.New("ledger fetch failed")

// MaxAccountsPerRequest is the node limit for getMultipleAccounts
const MaxAccountsPerRequest = 100

// Config of the ledger node connection
type Config struct {
	URL        string        `mapstructure:"rpc_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Commitment string        `mapstructure:"commitment"`
}

// Memcmp matches Bytes at Offset of the account data
type Memcmp struct {
	Offset int
	Bytes  []byte
}

// KeyedAccount is one result of a filtered scan
type KeyedAccount struct {
	Address address.PublicKey
	Data    []byte
}

// Blockhash is a recent blockhash and its expiry height
type Blockhash struct {
	Hash                 address.PublicKey
	LastValidBlockHeight uint64
}

// Client talks to one node. It is safe for concurrent use.
type Client struct {
	url        string
	timeout    time.Duration
	commitment string
	id         uint64
	post       func(ctx context.Context, url string, payload []byte) (int, []byte, error)
}

// NewClient constructor
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}
	return &Client{
		url:        cfg.URL,
		timeout:    timeout,
		commitment: commitment,
		post:       httpagent.PostJSON,
	}
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

// accountInfo is the base64 encoded account as returned by the node
type accountInfo struct {
	Data     []string `json:"data"`
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

func (a *accountInfo) bytes() ([]byte, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return nil, errors.Wrap(ErrFetchFailed, "unexpected account data encoding")
	}
	raw, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return nil, errors.Wrap(ErrFetchFailed, err.Error())
	}
	return raw, nil
}

// call issues one request and decodes result into out
func (c *Client) call(ctx context.Context, method string, out interface{}, params ...interface{}) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		monitor.RPCRequests.WithLabelValues(method, result).Inc()
		monitor.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.id, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(ErrFetchFailed, err.Error())
	}

	code, body, err := c.post(ctx, c.url, payload)
	if err != nil {
		return errors.Wrapf(ErrFetchFailed, "%s: %s", method, err)
	}
	if code != http.StatusOK {
		return errors.Wrapf(ErrFetchFailed, "%s: invalid status code: %d (%s)", method, code, http.StatusText(code))
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrapf(ErrFetchFailed, "%s: %s", method, err)
	}
	if resp.Error != nil {
		return errors.Wrapf(ErrFetchFailed, "%s: rpc error %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Wrapf(ErrFetchFailed, "%s: %s", method, err)
	}
	return nil
}

// GetFilteredAccounts scans all accounts of program matching the size (0 for any) and every memcmp filter
func (c *Client) GetFilteredAccounts(ctx context.Context, program address.PublicKey, dataSize uint64, filters ...Memcmp) ([]KeyedAccount, error) {
	list := make([]map[string]interface{}, 0, len(filters)+1)
	if dataSize > 0 {
		list = append(list, map[string]interface{}{"dataSize": dataSize})
	}
	for _, f := range filters {
		list = append(list, map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Offset,
				"bytes":  base58.Encode(f.Bytes),
			},
		})
	}
	opts := map[string]interface{}{
		"encoding":   "base64",
		"commitment": c.commitment,
		"filters":    list,
	}

	var result []struct {
		Pubkey  string      `json:"pubkey"`
		Account accountInfo `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", &result, program.String(), opts); err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccount, 0, len(result))
	for _, item := range result {
		pk, err := address.FromBase58(item.Pubkey)
		if err != nil {
			log.Warn().Err(err).Str("section", "rpc").Str("method", "getProgramAccounts").Msg("Skipping account with invalid address")
			continue
		}
		data, err := item.Account.bytes()
		if err != nil {
			log.Warn().Err(err).Str("section", "rpc").Str("method", "getProgramAccounts").Str("account", item.Pubkey).Msg("Skipping undecodable account")
			continue
		}
		accounts = append(accounts, KeyedAccount{Address: pk, Data: data})
	}
	return accounts, nil
}

// GetMultipleAccounts returns the data of each address in input order, nil for absent accounts
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []address.PublicKey) ([][]byte, error) {
	out := make([][]byte, 0, len(addresses))
	for start := 0; start < len(addresses); start += MaxAccountsPerRequest {
		end := start + MaxAccountsPerRequest
		if end > len(addresses) {
			end = len(addresses)
		}
		keys := make([]string, 0, end-start)
		for _, pk := range addresses[start:end] {
			keys = append(keys, pk.String())
		}

		var result struct {
			Value []*accountInfo `json:"value"`
		}
		opts := map[string]interface{}{"encoding": "base64", "commitment": c.commitment}
		if err := c.call(ctx, "getMultipleAccounts", &result, keys, opts); err != nil {
			return nil, err
		}
		if len(result.Value) != len(keys) {
			return nil, errors.Wrapf(ErrFetchFailed, "getMultipleAccounts: asked for %d accounts, got %d", len(keys), len(result.Value))
		}
		for _, info := range result.Value {
			if info == nil {
				out = append(out, nil)
				continue
			}
			data, err := info.bytes()
			if err != nil {
				return nil, err
			}
			out = append(out, data)
		}
	}
	return out, nil
}

// GetSingleAccount returns nil data without error when the account does not exist
func (c *Client) GetSingleAccount(ctx context.Context, pk address.PublicKey) ([]byte, error) {
	var result struct {
		Value *accountInfo `json:"value"`
	}
	opts := map[string]interface{}{"encoding": "base64", "commitment": c.commitment}
	if err := c.call(ctx, "getAccountInfo", &result, pk.String(), opts); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.bytes()
}

// GetLatestBlockhash returns the blockhash new transactions should reference
func (c *Client) GetLatestBlockhash(ctx context.Context) (Blockhash, error) {
	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	opts := map[string]interface{}{"commitment": c.commitment}
	if err := c.call(ctx, "getLatestBlockhash", &result, opts); err != nil {
		return Blockhash{}, err
	}
	hash, err := address.FromBase58(result.Value.Blockhash)
	if err != nil {
		return Blockhash{}, errors.Wrapf(ErrFetchFailed, "getLatestBlockhash: %s", err)
	}
	return Blockhash{Hash: hash, LastValidBlockHeight: result.Value.LastValidBlockHeight}, nil
}
