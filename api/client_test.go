package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "token-abc"

// fakeService mimics the light-mining API closely enough for the client.
type fakeService struct {
	t         *testing.T
	failFirst int32 // answer 503 to this many requests before behaving
	requests  atomic.Int32
	profile   map[string]any
	status    map[string]any

	mu        sync.Mutex
	lastLogin loginRequest
}

func (f *fakeService) login() loginRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLogin
}

func (f *fakeService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

func (f *fakeService) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testToken
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if n := f.requests.Add(1); n <= f.failFirst {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/wallet/generateNonce":
		var req nonceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WalletAddress == "" {
			f.writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "msg": "bad request"})
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": map[string]any{"nonce": "nonce-for-" + req.WalletAddress}})

	case r.Method == http.MethodPost && r.URL.Path == "/wallet/login":
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400})
			return
		}
		f.mu.Lock()
		f.lastLogin = req
		f.mu.Unlock()
		f.writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": map[string]any{"token": testToken}})

	case r.Method == http.MethodGet && r.URL.Path == "/user/getUserInfo":
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": f.profile})

	case r.Method == http.MethodGet && r.URL.Path == "/assignment/totalMiningTime":
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": f.status})

	case r.Method == http.MethodPost && r.URL.Path == "/assignment/startMining":
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"code": 200, "msg": "SUCCESS", "data": true})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, svc http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})}, opts...)
	c, err := New(srv.Client(), srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestGetNonce(t *testing.T) {
	svc := &fakeService{t: t}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	nonce, err := c.GetNonce(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "nonce-for-0xabc", nonce)
}

func TestLoginSendsInvitationCode(t *testing.T) {
	svc := &fakeService{t: t}
	c := newTestClient(t, svc, WithInvitationCode("HZHGW1LS"))
	ctx, _ := captureLogs(t)

	token, err := c.Login(ctx, "0xabc", "nonce", "0xsig")
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
	assert.Equal(t, loginRequest{
		Address:        "0xabc",
		InvitationCode: "HZHGW1LS",
		Message:        "nonce",
		Signature:      "0xsig",
	}, svc.login())
}

func TestGetUser(t *testing.T) {
	svc := &fakeService{t: t, profile: map[string]any{"userId": 1234, "twName": "miner_joe", "totalReward": "15.5"}}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	profile, err := c.GetUser(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, Scalar("1234"), profile.UserID)
	assert.Equal(t, "miner_joe", profile.TwitterName)
	assert.Equal(t, "15.5", profile.TotalReward.String())
}

func TestGetUserMissingData(t *testing.T) {
	svc := &fakeService{t: t}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	_, err := c.GetUser(ctx, testToken)
	require.ErrorIs(t, err, ErrMissingData)
	assert.Equal(t, int32(1), svc.requests.Load(), "missing data must not be retried")
}

func TestGetMinerStatus(t *testing.T) {
	svc := &fakeService{t: t, status: map[string]any{"lastMiningTime": 1736000000}}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	status, err := c.GetMinerStatus(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1736000000), status.LastMiningTime)
}

func TestGetMinerStatusNeverMined(t *testing.T) {
	svc := &fakeService{t: t, status: map[string]any{}}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	status, err := c.GetMinerStatus(ctx, testToken)
	require.NoError(t, err)
	assert.Zero(t, status.LastMiningTime)
}

func TestStartMining(t *testing.T) {
	svc := &fakeService{t: t}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	require.NoError(t, c.StartMining(ctx, testToken))
}

func TestBearerTokenRequired(t *testing.T) {
	svc := &fakeService{t: t}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	err := c.StartMining(ctx, "wrong-token")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, int32(3), svc.requests.Load())
}

func TestTransientFailuresAreRetried(t *testing.T) {
	svc := &fakeService{t: t, failFirst: 2}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	nonce, err := c.GetNonce(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "nonce-for-0xabc", nonce)
	assert.Equal(t, int32(3), svc.requests.Load())
}

func TestSustainedFailureGivesUpAfterThreeAttempts(t *testing.T) {
	svc := &fakeService{t: t, failFirst: 100}
	c := newTestClient(t, svc)
	ctx, logs := captureLogs(t)

	_, err := c.GetNonce(ctx, "0xabc")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "upstream busy", statusErr.Body)
	assert.Equal(t, int32(3), svc.requests.Load())
	assert.Contains(t, logs.String(), "Nonce request failed after retries")
}

func TestMalformedBodyIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	c := newTestClient(t, h)
	ctx, _ := captureLogs(t)

	_, err := c.GetNonce(ctx, "0xabc")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestBaseURLWithPath(t *testing.T) {
	paths := make(chan string, 1)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		_, _ = w.Write([]byte(`{"code":200,"data":{"nonce":"n"}}`))
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.Client(), srv.URL+"/v1")
	require.NoError(t, err)

	_, err = c.GetNonce(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "/v1/wallet/generateNonce", <-paths)
}

func TestScalarUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Scalar
	}{
		{`"12.5"`, "12.5"},
		{`12.5`, "12.5"},
		{`7`, "7"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var s Scalar
		require.NoError(t, json.Unmarshal([]byte(tt.in), &s), tt.in)
		assert.Equal(t, tt.want, s, tt.in)
	}
}

func TestGetMinerStatusAsString(t *testing.T) {
	svc := &fakeService{t: t, status: map[string]any{"lastMiningTime": "1736000000"}}
	c := newTestClient(t, svc)
	ctx, _ := captureLogs(t)

	status, err := c.GetMinerStatus(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1736000000), status.LastMiningTime)
	assert.Equal(t, int32(1), svc.requests.Load())
}

func TestMinerStatusUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "number", in: `{"lastMiningTime":1736000000}`, want: 1736000000},
		{name: "string", in: `{"lastMiningTime":"1736000000"}`, want: 1736000000},
		{name: "float", in: `{"lastMiningTime":1736000000.75}`, want: 1736000000},
		{name: "float string", in: `{"lastMiningTime":"1736000000.5"}`, want: 1736000000},
		{name: "null", in: `{"lastMiningTime":null}`, want: 0},
		{name: "empty string", in: `{"lastMiningTime":""}`, want: 0},
		{name: "absent", in: `{}`, want: 0},
		{name: "garbage", in: `{"lastMiningTime":"soon"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m MinerStatus
			err := json.Unmarshal([]byte(tt.in), &m)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.LastMiningTime)
		})
	}
}
