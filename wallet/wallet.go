// Package wallet loads the wallet credentials the bot cycles through and
// produces the personal-message signatures used to log in.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoWallets is returned when the credentials file is missing or lists no
// wallets.
var ErrNoWallets = errors.New("no wallets found")

// Record is one wallet identity from the credentials file.
type Record struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// Load reads the credentials file, a JSON array of {address, privateKey}
// objects. Either the full list is returned or an error; a missing file and
// an empty list both wrap ErrNoWallets.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s missing", ErrNoWallets, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoWallets, path)
	}
	return records, nil
}

// Validate checks that the private key parses and derives the declared
// address.
func (r Record) Validate() error {
	if !common.IsHexAddress(r.Address) {
		return fmt.Errorf("invalid address %q", r.Address)
	}
	key, err := ParsePrivateKey(r.PrivateKey)
	if err != nil {
		return fmt.Errorf("wallet %s: %w", r.Address, err)
	}
	derived := crypto.PubkeyToAddress(key.PublicKey)
	if derived != common.HexToAddress(r.Address) {
		return fmt.Errorf("wallet %s: private key belongs to %s", r.Address, derived.Hex())
	}
	return nil
}

// ParsePrivateKey decodes a hex secp256k1 key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, errors.New("empty private key")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}
