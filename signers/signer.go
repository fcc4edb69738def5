// Package signers provides client-side signing over the exact digests the
// authorization engine verifies. A KeySigner is what a wallet or payment
// client embeds to produce offline permits and transfer authorizations for
// later third-party submission.
package signers

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/stabletoken/authcore/eip712"
)

// Domain identifies the deployment the produced signatures are bound to.
// Must match the engine's configuration byte-for-byte or every signature
// fails verification.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Separator returns the EIP-712 domain separator for this domain.
func (d Domain) Separator() common.Hash {
	return eip712.DomainSeparator(d.Name, d.Version, d.ChainID, d.VerifyingContract)
}

// KeySigner signs authorization messages with a raw ECDSA private key.
type KeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewKeySignerFromPrivateKey creates a signer from a hex-encoded private
// key, with or without a "0x" prefix.
func NewKeySignerFromPrivateKey(privateKeyHex string) (*KeySigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &KeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// NewRandomKeySigner creates a signer with a freshly generated key.
func NewRandomKeySigner() (*KeySigner, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	return &KeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the signer's address.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignDigest signs a 32-byte digest, returning a 65-byte (r, s, v)
// signature with v in Ethereum's 27/28 convention.
func (s *KeySigner) SignDigest(digest common.Hash) ([]byte, error) {
	signature, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Recovery id 0/1 → 27/28
	signature[64] += 27

	return signature, nil
}

// SignPermit signs an EIP-2612 permit message under the given domain.
func (s *KeySigner) SignPermit(domain Domain, permit eip712.Permit) ([]byte, error) {
	return s.SignDigest(eip712.TypedDataDigest(domain.Separator(), permit.StructHash()))
}

// SignTransferAuthorization signs an EIP-3009 transfer authorization.
func (s *KeySigner) SignTransferAuthorization(domain Domain, auth eip712.TransferAuthorization) ([]byte, error) {
	return s.SignDigest(eip712.TypedDataDigest(domain.Separator(), auth.StructHash()))
}

// SignReceiveAuthorization signs an EIP-3009 receive authorization.
func (s *KeySigner) SignReceiveAuthorization(domain Domain, auth eip712.ReceiveAuthorization) ([]byte, error) {
	return s.SignDigest(eip712.TypedDataDigest(domain.Separator(), auth.StructHash()))
}

// SignCancelAuthorization signs a cancellation for a pending nonce.
func (s *KeySigner) SignCancelAuthorization(domain Domain, cancel eip712.CancelAuthorization) ([]byte, error) {
	return s.SignDigest(eip712.TypedDataDigest(domain.Separator(), cancel.StructHash()))
}

// RandomNonce draws a fresh 256-bit authorization nonce. Nonces are
// client-chosen and unordered, so a batch of authorizations can be signed
// in parallel and redeemed in any order.
func RandomNonce() (common.Hash, error) {
	var nonce common.Hash
	if _, err := rand.Read(nonce[:]); err != nil {
		return common.Hash{}, fmt.Errorf("failed to draw nonce: %w", err)
	}
	return nonce, nil
}
