package authcore

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// eip1271MagicValue is the 4-byte acknowledgment a programmable account's
// isValidSignature entry point must return for a valid signature.
var eip1271MagicValue = []byte{0x16, 0x26, 0xba, 0x7e}

// ecdsaSignatureLength is the only signature length accepted on the raw-key
// path: 32-byte r, 32-byte s, 1-byte recovery id.
const ecdsaSignatureLength = 65

// isValidSignatureNow decides whether signature authorizes digest on behalf
// of signer, dispatching on whether the signer is a programmable account.
//
// The returned error is reserved for infrastructure faults (the inspector
// probe failing); every way a signature can be wrong is reported as
// (false, nil) and mapped to the error taxonomy by the caller.
func (e *Engine) isValidSignatureNow(ctx context.Context, signer common.Address, digest common.Hash, signature []byte) (bool, error) {
	programmable, err := e.inspector.IsProgrammable(ctx, signer)
	if err != nil {
		return false, fmt.Errorf("failed to probe account: %w", err)
	}

	if programmable {
		return e.validateProgrammableSignature(ctx, signer, digest, signature), nil
	}
	return e.recoverMatches(signer, digest, signature), nil
}

// validateProgrammableSignature forwards (digest, signature) to the
// account's EIP-1271 entry point. Any callee error, short return, or
// return not beginning with the magic value is invalid; the callee is
// untrusted and its failure modes are not the engine's faults.
func (e *Engine) validateProgrammableSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) bool {
	ret, err := e.inspector.ValidateSignature(ctx, account, digest, signature)
	if err != nil {
		e.logger.Debug("programmable signature validation failed",
			zap.Stringer("account", account),
			zap.Error(err))
		return false
	}
	if len(ret) < len(eip1271MagicValue) {
		return false
	}
	return bytes.Equal(ret[:len(eip1271MagicValue)], eip1271MagicValue)
}

// recoverMatches treats signature strictly as a 65-byte (r, s, v) ECDSA
// signature, recovers the signing key's address against digest, and
// requires exact equality with the claimed signer. Low-s canonical form is
// enforced unless the engine was configured permissive.
func (e *Engine) recoverMatches(signer common.Address, digest common.Hash, signature []byte) bool {
	if len(signature) != ecdsaSignatureLength {
		return false
	}

	r := new(big.Int).SetBytes(signature[0:32])
	s := new(big.Int).SetBytes(signature[32:64])
	v := signature[64]

	// Accept Ethereum-style 27/28 recovery ids alongside raw 0/1.
	if v == 27 || v == 28 {
		v -= 27
	}
	if v != 0 && v != 1 {
		return false
	}

	if !e.permissiveSigs && !crypto.ValidateSignatureValues(v, r, s, true) {
		return false
	}

	normalized := make([]byte, ecdsaSignatureLength)
	copy(normalized[0:64], signature[0:64])
	normalized[64] = v

	pubkey, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*pubkey) == signer
}
