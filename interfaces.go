package authcore

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the balance/allowance mutator the engine drives on successful
// authorizations. The engine never touches balances directly; who may hold
// or mint funds is entirely the ledger's concern.
//
// Implementations must be atomic per call: a returned error means nothing
// was mutated, and the engine will unwind its own nonce state in response.
type Ledger interface {
	// Transfer moves value from one account to another.
	Transfer(ctx context.Context, from, to common.Address, value *big.Int) error

	// Approve sets (not accumulates) the spender's allowance over the
	// owner's funds.
	Approve(ctx context.Context, owner, spender common.Address, value *big.Int) error
}

// Clock supplies the current time in unix seconds for authorization-window
// and deadline checks. Implementations must be monotonically non-decreasing;
// the value is untrusted-but-monotonic, not a precise clock, and is never
// chosen by the signer or the submitter.
type Clock interface {
	Now() uint64
}

// ChainIDProvider reports the current network identity. The domain
// separator is recomputed from this on every access, so an implementation
// backed by a live node keeps signatures bound to the chain they were
// issued for across chain splits.
type ChainIDProvider interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// AccountInspector decides whether a signer identity is a programmable
// account and, if so, reaches its EIP-1271 verification entry point.
//
// ValidateSignature is an untrusted boundary: the callee runs arbitrary
// logic and may attempt to reenter the engine. The engine marks nonce state
// consumed before crossing it.
type AccountInspector interface {
	// IsProgrammable reports whether the account has attached executable
	// logic (for on-chain identities: a non-empty code check).
	IsProgrammable(ctx context.Context, account common.Address) (bool, error)

	// ValidateSignature invokes the account's isValidSignature entry point
	// and returns the raw return data. A valid signature yields at least
	// four bytes beginning with the EIP-1271 magic value.
	ValidateSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) ([]byte, error)
}

// EventSink receives one event per successful mutating operation. Optional;
// a nil sink drops events. Implementations must not block for long: the
// engine invokes the sink while holding the operation's key lock.
type EventSink interface {
	Emit(event Event)
}
