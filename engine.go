// Package authcore implements an offline-authorization engine for
// EIP-2612 permits and EIP-3009 transfer authorizations.
//
// A value holder pre-signs an instruction (approve a spender, transfer
// funds, cancel a pending instruction) as EIP-712 typed data without
// submitting anything themselves; any third party later presents the signed
// instruction to the engine to be executed exactly once, within whatever
// time bounds the signer specified. Signers may be raw key holders (65-byte
// ECDSA signatures, recover-and-compare) or programmable accounts whose
// verification logic is reached through the EIP-1271 entry point.
//
// The engine owns only its replay-protection state. Balances, allowances,
// time, and account inspection are consumed through the ports declared in
// interfaces.go, which makes the core independently testable with fakes.
package authcore

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/stabletoken/authcore/eip712"
	"github.com/stabletoken/authcore/store"
)

// lockStripes is the size of the striped lock table guarding nonce state.
const lockStripes = 256

// Config assembles an Engine. Name, Version, and VerifyingContract identify
// the deployment inside the EIP-712 domain; all port fields are required
// except Logger and Events.
type Config struct {
	// Name and Version are the protocol identity baked into the domain
	// separator (e.g. "USD Coin" / "2").
	Name    string
	Version string

	// VerifyingContract is the deployment identity inside the domain.
	VerifyingContract common.Address

	ChainID   ChainIDProvider
	Ledger    Ledger
	Clock     Clock
	Inspector AccountInspector
	Nonces    store.NonceStore

	// Events receives one event per successful mutating operation. Optional.
	Events EventSink

	// Logger defaults to a no-op logger when nil.
	Logger *zap.Logger

	// PermissiveSignatures disables low-s (anti-malleability) enforcement
	// on raw ECDSA signatures, preserving compatibility with signatures
	// issued by tooling that predates canonical-form enforcement. Leave
	// false for new deployments.
	PermissiveSignatures bool
}

// Engine executes pre-signed permit, transfer, receive, and cancel
// instructions exactly once each. Safe for concurrent use.
type Engine struct {
	name     string
	version  string
	contract common.Address

	chainID   ChainIDProvider
	ledger    Ledger
	clock     Clock
	inspector AccountInspector
	nonces    store.NonceStore
	events    EventSink
	logger    *zap.Logger

	permissiveSigs bool

	locks [lockStripes]sync.Mutex
}

// New validates the config and creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Name == "" || cfg.Version == "" {
		return nil, fmt.Errorf("domain name and version are required")
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain ID provider is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.Inspector == nil {
		return nil, fmt.Errorf("account inspector is required")
	}
	if cfg.Nonces == nil {
		return nil, fmt.Errorf("nonce store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		name:           cfg.Name,
		version:        cfg.Version,
		contract:       cfg.VerifyingContract,
		chainID:        cfg.ChainID,
		ledger:         cfg.Ledger,
		clock:          cfg.Clock,
		inspector:      cfg.Inspector,
		nonces:         cfg.Nonces,
		events:         cfg.Events,
		logger:         logger,
		permissiveSigs: cfg.PermissiveSignatures,
	}, nil
}

// DomainSeparator returns the current EIP-712 domain separator. It is
// recomputed from the chain ID provider on every call, never cached, so it
// stays correct if the network identity changes underneath a running
// deployment.
func (e *Engine) DomainSeparator(ctx context.Context) (common.Hash, error) {
	chainID, err := e.chainID.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to resolve chain ID: %w", err)
	}
	return eip712.DomainSeparator(e.name, e.version, chainID, e.contract), nil
}

// Nonces returns the owner's next expected sequential permit nonce. An
// owner that has never issued a permit is at 0.
func (e *Engine) Nonces(owner common.Address) (*big.Int, error) {
	nonce, err := e.nonces.PermitNonce(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read permit nonce: %w", err)
	}
	return new(big.Int).SetUint64(nonce), nil
}

// AuthorizationState reports whether the (authorizer, nonce) slot has been
// used or canceled. The transition is one-way: once true, always true.
func (e *Engine) AuthorizationState(authorizer common.Address, nonce common.Hash) (bool, error) {
	used, err := e.nonces.AuthorizationState(authorizer, nonce)
	if err != nil {
		return false, fmt.Errorf("failed to read authorization state: %w", err)
	}
	return used, nil
}

// digest reproduces the exact digest the signer committed to for the given
// struct hash, under the current domain separator.
func (e *Engine) digest(ctx context.Context, structHash common.Hash) (common.Hash, error) {
	separator, err := e.DomainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return eip712.TypedDataDigest(separator, structHash), nil
}

// lockFor returns the stripe lock guarding the given state key. The lock is
// held across the full check-verify-mutate-effect sequence of one
// operation, so no two operations can observe the same slot as unused and
// both succeed.
func (e *Engine) lockFor(key []byte) *sync.Mutex {
	h := fnv.New32a()
	h.Write(key)
	return &e.locks[h.Sum32()%lockStripes]
}

func (e *Engine) now() *big.Int {
	return new(big.Int).SetUint64(e.clock.Now())
}
