package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingData is returned when a request succeeded but the response does
// not carry the field the caller needs. It is never retried.
var ErrMissingData = errors.New("response missing data")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// envelope is the {code, msg, data} wrapper every endpoint answers with.
type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *T     `json:"data"`
}

type nonceRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type nonceData struct {
	Nonce string `json:"nonce"`
}

type loginRequest struct {
	Address        string `json:"address"`
	InvitationCode string `json:"invitationCode"`
	Message        string `json:"message"`
	Signature      string `json:"signature"`
}

type loginData struct {
	Token string `json:"token"`
}

// UserProfile is the account summary behind a login. TwitterName is empty
// until the user binds an X/Twitter account.
type UserProfile struct {
	UserID      Scalar `json:"userId"`
	TwitterName string `json:"twName"`
	TotalReward Scalar `json:"totalReward"`
}

// MinerStatus carries the unix time, in seconds, of the last mining session.
// Zero means the wallet has never mined.
type MinerStatus struct {
	LastMiningTime int64 `json:"lastMiningTime"`
}

// UnmarshalJSON accepts lastMiningTime as a JSON number or a numeric string,
// with or without a fractional part. Null or an empty string decode as zero.
func (m *MinerStatus) UnmarshalJSON(data []byte) error {
	var raw struct {
		LastMiningTime Scalar `json:"lastMiningTime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	last, err := raw.LastMiningTime.Int64()
	if err != nil {
		return fmt.Errorf("lastMiningTime: %w", err)
	}
	m.LastMiningTime = last
	return nil
}

// Scalar holds a JSON string or number as text. The service is not
// consistent about which one it sends for ids and reward amounts.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	default:
		*s = Scalar(data)
	}
	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// Int64 parses s as an integer, truncating any fractional part. An empty
// Scalar is zero.
func (s Scalar) Int64() (int64, error) {
	str := strings.TrimSpace(string(s))
	if str == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(str, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", str)
	}
	return int64(f), nil
}
