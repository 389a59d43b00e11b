// Package api is a client for the light-mining REST service: nonce issuance,
// wallet login, profile and mining-status lookups, and the mining trigger.
//
// Every operation retries transport failures and non-2xx responses according
// to the client's RetryPolicy and logs through the logger found in ctx.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"takerminer/logger"
)

// Endpoint paths, relative to the base URL.
const (
	pathNonce       = "wallet/generateNonce"
	pathLogin       = "wallet/login"
	pathUserInfo    = "user/getUserInfo"
	pathMinerStatus = "assignment/totalMiningTime"
	pathStartMining = "assignment/startMining"
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Client talks to one light-mining API host. It is safe to reuse across
// wallets; it holds no per-wallet state.
type Client struct {
	http           *http.Client
	baseURL        *url.URL
	invitationCode string
	retry          RetryPolicy
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryPolicy replaces the default 3 attempts, 3s apart policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithInvitationCode sets the referral code sent with every login.
func WithInvitationCode(code string) Option {
	return func(c *Client) {
		c.invitationCode = code
	}
}

// New creates a Client for baseURL using httpClient for transport. The
// caller owns httpClient and its timeout.
func New(httpClient *http.Client, baseURL string, opts ...Option) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		http:    httpClient,
		baseURL: u,
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetNonce asks the service for a one-time login nonce for address.
func (c *Client) GetNonce(ctx context.Context, address string) (string, error) {
	resp, err := Retry(ctx, c.retry, "Nonce request", func(ctx context.Context) (*envelope[nonceData], error) {
		var out envelope[nonceData]
		err := c.do(ctx, http.MethodPost, pathNonce, "", nonceRequest{WalletAddress: address}, &out)
		return &out, err
	})
	if err != nil {
		return "", err
	}
	if resp.Data == nil || resp.Data.Nonce == "" {
		return "", fmt.Errorf("nonce: %w", ErrMissingData)
	}
	return resp.Data.Nonce, nil
}

// Login exchanges a signed nonce for a bearer token.
func (c *Client) Login(ctx context.Context, address, message, signature string) (string, error) {
	req := loginRequest{
		Address:        address,
		InvitationCode: c.invitationCode,
		Message:        message,
		Signature:      signature,
	}
	resp, err := Retry(ctx, c.retry, "Login", func(ctx context.Context) (*envelope[loginData], error) {
		var out envelope[loginData]
		err := c.do(ctx, http.MethodPost, pathLogin, "", req, &out)
		return &out, err
	})
	if err != nil {
		return "", err
	}
	if resp.Data == nil || resp.Data.Token == "" {
		return "", fmt.Errorf("login token: %w", ErrMissingData)
	}
	return resp.Data.Token, nil
}

// GetUser fetches the profile of the logged-in wallet.
func (c *Client) GetUser(ctx context.Context, token string) (*UserProfile, error) {
	resp, err := Retry(ctx, c.retry, "User info request", func(ctx context.Context) (*envelope[UserProfile], error) {
		var out envelope[UserProfile]
		err := c.do(ctx, http.MethodGet, pathUserInfo, token, nil, &out)
		return &out, err
	})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("user info: %w", ErrMissingData)
	}
	return resp.Data, nil
}

// GetMinerStatus fetches the last mining time of the logged-in wallet.
func (c *Client) GetMinerStatus(ctx context.Context, token string) (*MinerStatus, error) {
	resp, err := Retry(ctx, c.retry, "Miner status request", func(ctx context.Context) (*envelope[MinerStatus], error) {
		var out envelope[MinerStatus]
		err := c.do(ctx, http.MethodGet, pathMinerStatus, token, nil, &out)
		return &out, err
	})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("miner status: %w", ErrMissingData)
	}
	return resp.Data, nil
}

// StartMining triggers a new mining session server-side.
func (c *Client) StartMining(ctx context.Context, token string) error {
	_, err := Retry(ctx, c.retry, "Mining start", func(ctx context.Context) (*envelope[json.RawMessage], error) {
		var out envelope[json.RawMessage]
		err := c.do(ctx, http.MethodPost, pathStartMining, token, struct{}{}, &out)
		return &out, err
	})
	return err
}

// do performs one request. Transport failures and non-2xx statuses are
// returned as retryable errors; an undecodable 2xx body is permanent.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	endpoint := c.baseURL.JoinPath(path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("encode %s body: %w", path, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build %s request: %w", path, err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.DebugContext(ctx, "api request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}
