package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical type declaration strings. Field names, types, and ordering are
// fixed by EIP-2612 and EIP-3009; changing a single byte changes every
// type-hash and breaks interoperability with deployed signers.
const (
	PermitType                    = "Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"
	TransferWithAuthorizationType = "TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
	ReceiveWithAuthorizationType  = "ReceiveWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
	CancelAuthorizationType       = "CancelAuthorization(address authorizer,bytes32 nonce)"
)

// Precomputed type-hashes. Each message variant hashes under its own
// type-hash, so a signature over one variant can never be replayed as
// another even when the field values are identical.
var (
	PermitTypeHash                    = crypto.Keccak256Hash([]byte(PermitType))
	TransferWithAuthorizationTypeHash = crypto.Keccak256Hash([]byte(TransferWithAuthorizationType))
	ReceiveWithAuthorizationTypeHash  = crypto.Keccak256Hash([]byte(ReceiveWithAuthorizationType))
	CancelAuthorizationTypeHash       = crypto.Keccak256Hash([]byte(CancelAuthorizationType))
)

// Permit is an EIP-2612 approval message. Nonce is the owner's current
// sequential permit counter, not a client-chosen value.
type Permit struct {
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

// StructHash returns keccak256(typeHash || abi.encode(fields)).
func (p Permit) StructHash() common.Hash {
	return structHash(PermitTypeHash,
		encodeAddress(p.Owner),
		encodeAddress(p.Spender),
		encodeUint256(p.Value),
		encodeUint256(p.Nonce),
		encodeUint256(p.Deadline),
	)
}

// TransferAuthorization is an EIP-3009 transfer message, submittable by
// anyone within its (ValidAfter, ValidBefore) window.
type TransferAuthorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       common.Hash
}

func (a TransferAuthorization) StructHash() common.Hash {
	return structHash(TransferWithAuthorizationTypeHash,
		encodeAddress(a.From),
		encodeAddress(a.To),
		encodeUint256(a.Value),
		encodeUint256(a.ValidAfter),
		encodeUint256(a.ValidBefore),
		a.Nonce.Bytes(),
	)
}

// ReceiveAuthorization carries the same fields as TransferAuthorization but
// hashes under a distinct type-hash and may only be submitted by the payee.
type ReceiveAuthorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       common.Hash
}

func (a ReceiveAuthorization) StructHash() common.Hash {
	return structHash(ReceiveWithAuthorizationTypeHash,
		encodeAddress(a.From),
		encodeAddress(a.To),
		encodeUint256(a.Value),
		encodeUint256(a.ValidAfter),
		encodeUint256(a.ValidBefore),
		a.Nonce.Bytes(),
	)
}

// CancelAuthorization retires an unused transfer/receive nonce without
// moving funds.
type CancelAuthorization struct {
	Authorizer common.Address
	Nonce      common.Hash
}

func (c CancelAuthorization) StructHash() common.Hash {
	return structHash(CancelAuthorizationTypeHash,
		encodeAddress(c.Authorizer),
		c.Nonce.Bytes(),
	)
}

func structHash(typeHash common.Hash, words ...[]byte) common.Hash {
	enc := make([]byte, 0, (1+len(words))*32)
	enc = append(enc, typeHash.Bytes()...)
	for _, w := range words {
		enc = append(enc, w...)
	}
	return crypto.Keccak256Hash(enc)
}
