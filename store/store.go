// Package store defines the nonce-state storage consumed by the
// authorization engine: the per-owner sequential permit counters and the
// (authorizer, nonce) used-set for transfer authorizations.
//
// Both spaces start empty at initialization and only grow; the engine never
// deletes an entry. Implementations must be safe for concurrent use, but
// need not provide cross-key atomicity: the engine serializes all access to
// a given key itself.
package store

import (
	"github.com/ethereum/go-ethereum/common"
)

// NonceStore persists the engine's replay-protection state.
//
// The two nonce spaces are disjoint by construction and must never be
// backed by the same keys: permit counters are strictly ordered per owner,
// authorization nonces are an unordered client-chosen set.
type NonceStore interface {
	// PermitNonce returns the owner's next expected permit counter value.
	// An owner never seen before is at 0.
	PermitNonce(owner common.Address) (uint64, error)

	// SetPermitNonce records the owner's next expected counter value.
	SetPermitNonce(owner common.Address, nonce uint64) error

	// AuthorizationState reports whether the (authorizer, nonce) slot has
	// been used or canceled.
	AuthorizationState(authorizer common.Address, nonce common.Hash) (bool, error)

	// SetAuthorizationState records or clears the used marker for the
	// (authorizer, nonce) slot. Clearing exists only so the engine can
	// unwind a tentative marker when verification fails; a slot that was
	// reported used by a completed operation is never cleared.
	SetAuthorizationState(authorizer common.Address, nonce common.Hash, used bool) error
}
