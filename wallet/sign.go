package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"takerminer/logger"
)

// Sign produces an EIP-191 personal-message signature over message, in the
// 65-byte r||s||v form with v in {27, 28}, hex encoded with a 0x prefix.
// Signing is deterministic for a given key and message. Failures are logged
// through the logger carried by ctx.
func Sign(ctx context.Context, message, privateKey string) (string, error) {
	sig, err := sign(message, privateKey)
	if err != nil {
		logger.ErrorContext(ctx, "Signature failed", "error", err)
		return "", err
	}
	return sig, nil
}

func sign(message, privateKey string) (string, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// Verify reports whether signature is a personal-message signature of
// message by address.
func Verify(message, signature, address string) bool {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	return strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), common.HexToAddress(address).Hex())
}
