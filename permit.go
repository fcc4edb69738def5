package authcore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"github.com/stabletoken/authcore/eip712"
)

// Permit executes a pre-signed EIP-2612 approval: on success the spender's
// allowance over the owner's funds is replaced with value.
//
// The digest is built over the owner's current sequential nonce, never a
// caller-supplied one: a signature over any other counter value simply
// fails verification. The counter is consumed before the signature is
// verified (and restored if verification or the ledger effect fails), so a
// reentrant verification callback cannot redeem the same counter value
// twice. Because each permit consumes the unique next counter value, a
// signer cannot hold two independently valid outstanding permits; for
// out-of-order redemption use transfer authorizations instead.
//
// A deadline equal to max uint256 means the permit never expires.
func (e *Engine) Permit(ctx context.Context, owner, spender common.Address, value, deadline *big.Int, signature []byte) error {
	if value == nil || deadline == nil {
		return fmt.Errorf("value and deadline must not be nil")
	}

	mu := e.lockFor(owner.Bytes())
	mu.Lock()
	defer mu.Unlock()

	if deadline.Cmp(math.MaxBig256) != 0 && deadline.Cmp(e.now()) < 0 {
		e.logger.Debug("permit rejected: deadline passed",
			zap.Stringer("owner", owner),
			zap.String("deadline", deadline.String()))
		return NewAuthorizationError(ErrCodeExpiredAuthorization, "permit is expired", map[string]interface{}{
			"owner":    owner.Hex(),
			"deadline": deadline.String(),
		})
	}

	nonce, err := e.nonces.PermitNonce(owner)
	if err != nil {
		return fmt.Errorf("failed to read permit nonce: %w", err)
	}

	structHash := eip712.Permit{
		Owner:    owner,
		Spender:  spender,
		Value:    value,
		Nonce:    new(big.Int).SetUint64(nonce),
		Deadline: deadline,
	}.StructHash()

	digest, err := e.digest(ctx, structHash)
	if err != nil {
		return err
	}

	// Consume the counter before crossing the untrusted verification
	// boundary; restored below on any failure.
	if err := e.nonces.SetPermitNonce(owner, nonce+1); err != nil {
		return fmt.Errorf("failed to advance permit nonce: %w", err)
	}

	valid, err := e.isValidSignatureNow(ctx, owner, digest, signature)
	if err != nil {
		e.restorePermitNonce(owner, nonce)
		return err
	}
	if !valid {
		e.restorePermitNonce(owner, nonce)
		return NewAuthorizationError(ErrCodeInvalidSignature, "invalid permit signature", map[string]interface{}{
			"owner": owner.Hex(),
		})
	}

	if err := e.ledger.Approve(ctx, owner, spender, value); err != nil {
		e.restorePermitNonce(owner, nonce)
		return fmt.Errorf("ledger approve failed: %w", err)
	}

	e.logger.Info("permit executed",
		zap.Stringer("owner", owner),
		zap.Stringer("spender", spender),
		zap.String("value", value.String()),
		zap.Uint64("nonce", nonce))

	e.emit(ApprovalEvent{
		EventMeta: newEventMeta(),
		Owner:     owner,
		Spender:   spender,
		Value:     new(big.Int).Set(value),
	})

	return nil
}

// restorePermitNonce unwinds a tentative counter increment after a failed
// permit so the failure leaves no externally visible trace.
func (e *Engine) restorePermitNonce(owner common.Address, nonce uint64) {
	if err := e.nonces.SetPermitNonce(owner, nonce); err != nil {
		// The store just accepted a write for this key; a failure here
		// leaves the counter burned, which fails safe (the permit can be
		// re-signed) but deserves a loud log line.
		e.logger.Error("failed to restore permit nonce",
			zap.Stringer("owner", owner),
			zap.Uint64("nonce", nonce),
			zap.Error(err))
	}
}
