// Package eip712 implements the EIP-712 structured-data hashing used by the
// authorization engine: the domain separator, the per-message struct hashes,
// and the final signer-facing digest.
//
// The type declaration strings and the two-prefix digest construction are
// fixed by the wire protocol (EIP-2612 / EIP-3009) and must be reproduced
// byte-for-byte to interoperate with existing external signing tools
// (MetaMask, ethers.js, hardware wallets).
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// domainType is the canonical EIP-712 domain declaration.
const domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

var domainTypeHash = crypto.Keccak256Hash([]byte(domainType))

// DomainSeparator computes the EIP-712 domain separator binding signatures
// to a specific protocol name/version, chain, and deployment.
//
// It is recomputed from its inputs on every call and never cached, so a
// caller that feeds it the current chain ID stays correct across chain
// splits: signatures issued for the old chain identity stop verifying on
// the new one and vice versa.
func DomainSeparator(name, version string, chainID *big.Int, verifyingContract common.Address) common.Hash {
	enc := make([]byte, 0, 5*32)
	enc = append(enc, domainTypeHash.Bytes()...)
	enc = append(enc, crypto.Keccak256([]byte(name))...)
	enc = append(enc, crypto.Keccak256([]byte(version))...)
	enc = append(enc, encodeUint256(chainID)...)
	enc = append(enc, encodeAddress(verifyingContract)...)
	return crypto.Keccak256Hash(enc)
}

// TypedDataDigest builds the final digest a signer commits to:
// keccak256("\x19\x01" || domainSeparator || structHash).
func TypedDataDigest(domainSeparator, structHash common.Hash) common.Hash {
	raw := make([]byte, 0, 2+2*32)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator.Bytes()...)
	raw = append(raw, structHash.Bytes()...)
	return crypto.Keccak256Hash(raw)
}

// encodeUint256 ABI-encodes a non-negative integer as a 32-byte word.
// A nil value encodes as zero.
func encodeUint256(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

// encodeAddress ABI-encodes an address as a left-padded 32-byte word.
func encodeAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}
