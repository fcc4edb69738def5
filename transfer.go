package authcore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/stabletoken/authcore/eip712"
)

// TransferWithAuthorization executes a pre-signed EIP-3009 transfer.
// Callable by anyone: the signer's consent lives entirely in the signature,
// and the (from, nonce) slot guarantees at-most-once execution.
//
// The current time must lie strictly within (validAfter, validBefore).
func (e *Engine) TransferWithAuthorization(ctx context.Context, from, to common.Address, value, validAfter, validBefore *big.Int, nonce common.Hash, signature []byte) error {
	if value == nil || validAfter == nil || validBefore == nil {
		return fmt.Errorf("value, validAfter and validBefore must not be nil")
	}

	if err := e.checkAuthorizationWindow(from, validAfter, validBefore); err != nil {
		return err
	}

	structHash := eip712.TransferAuthorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       nonce,
	}.StructHash()

	return e.executeAuthorization(ctx, from, nonce, structHash, signature, func(ctx context.Context) error {
		if err := e.ledger.Transfer(ctx, from, to, value); err != nil {
			return fmt.Errorf("ledger transfer failed: %w", err)
		}

		e.logger.Info("transfer authorization executed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.String("value", value.String()),
			zap.Stringer("nonce", nonce))

		e.emit(AuthorizationUsedEvent{
			EventMeta:  newEventMeta(),
			Authorizer: from,
			Nonce:      nonce,
		})
		e.emit(TransferEvent{
			EventMeta: newEventMeta(),
			From:      from,
			To:        to,
			Value:     new(big.Int).Set(value),
		})
		return nil
	})
}

// ReceiveWithAuthorization executes a pre-signed transfer that only the
// payee may submit: caller must equal to. This closes a front-running
// window; a third party observing the signed message cannot submit it
// ahead of the payee to control settlement timing. The message hashes under
// its own type-hash, so a signed receive authorization can never be
// replayed through TransferWithAuthorization or vice versa.
func (e *Engine) ReceiveWithAuthorization(ctx context.Context, caller, from, to common.Address, value, validAfter, validBefore *big.Int, nonce common.Hash, signature []byte) error {
	if value == nil || validAfter == nil || validBefore == nil {
		return fmt.Errorf("value, validAfter and validBefore must not be nil")
	}

	if caller != to {
		return NewAuthorizationError(ErrCodeUnauthorizedCaller, "caller must be the payee", map[string]interface{}{
			"caller": caller.Hex(),
			"to":     to.Hex(),
		})
	}

	if err := e.checkAuthorizationWindow(from, validAfter, validBefore); err != nil {
		return err
	}

	structHash := eip712.ReceiveAuthorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       nonce,
	}.StructHash()

	return e.executeAuthorization(ctx, from, nonce, structHash, signature, func(ctx context.Context) error {
		if err := e.ledger.Transfer(ctx, from, to, value); err != nil {
			return fmt.Errorf("ledger transfer failed: %w", err)
		}

		e.logger.Info("receive authorization executed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.String("value", value.String()),
			zap.Stringer("nonce", nonce))

		e.emit(AuthorizationUsedEvent{
			EventMeta:  newEventMeta(),
			Authorizer: from,
			Nonce:      nonce,
		})
		e.emit(TransferEvent{
			EventMeta: newEventMeta(),
			From:      from,
			To:        to,
			Value:     new(big.Int).Set(value),
		})
		return nil
	})
}

// CancelAuthorization permanently retires an unused (authorizer, nonce)
// slot on the authorizer's signed instruction, without moving funds. A
// canceled slot is indistinguishable from a used one; there is no
// un-cancel.
func (e *Engine) CancelAuthorization(ctx context.Context, authorizer common.Address, nonce common.Hash, signature []byte) error {
	structHash := eip712.CancelAuthorization{
		Authorizer: authorizer,
		Nonce:      nonce,
	}.StructHash()

	return e.executeAuthorization(ctx, authorizer, nonce, structHash, signature, func(ctx context.Context) error {
		e.logger.Info("authorization canceled",
			zap.Stringer("authorizer", authorizer),
			zap.Stringer("nonce", nonce))

		e.emit(AuthorizationCanceledEvent{
			EventMeta:  newEventMeta(),
			Authorizer: authorizer,
			Nonce:      nonce,
		})
		return nil
	})
}

// checkAuthorizationWindow enforces validAfter < now < validBefore,
// irrespective of signature validity or nonce state.
func (e *Engine) checkAuthorizationWindow(authorizer common.Address, validAfter, validBefore *big.Int) error {
	now := e.now()

	if now.Cmp(validAfter) <= 0 {
		return NewAuthorizationError(ErrCodeNotYetValid, "authorization is not yet valid", map[string]interface{}{
			"authorizer": authorizer.Hex(),
			"validAfter": validAfter.String(),
		})
	}
	if now.Cmp(validBefore) >= 0 {
		return NewAuthorizationError(ErrCodeExpiredAuthorization, "authorization is expired", map[string]interface{}{
			"authorizer":  authorizer.Hex(),
			"validBefore": validBefore.String(),
		})
	}
	return nil
}

// executeAuthorization runs the shared random-nonce state machine: under
// the (authorizer, nonce) key lock, require the slot Unused, mark it Used
// before crossing the untrusted verification boundary, verify the
// signature, then apply the effect. Any failure unwinds the marker so a
// failed attempt leaves zero externally durable state.
func (e *Engine) executeAuthorization(ctx context.Context, authorizer common.Address, nonce common.Hash, structHash common.Hash, signature []byte, effect func(context.Context) error) error {
	key := make([]byte, 0, common.AddressLength+common.HashLength)
	key = append(key, authorizer.Bytes()...)
	key = append(key, nonce.Bytes()...)

	mu := e.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	used, err := e.nonces.AuthorizationState(authorizer, nonce)
	if err != nil {
		return fmt.Errorf("failed to read authorization state: %w", err)
	}
	if used {
		return NewAuthorizationError(ErrCodeAlreadyUsedOrCanceled, "authorization is used or canceled", map[string]interface{}{
			"authorizer": authorizer.Hex(),
			"nonce":      nonce.Hex(),
		})
	}

	digest, err := e.digest(ctx, structHash)
	if err != nil {
		return err
	}

	// Mark the slot consumed before the untrusted verification callback
	// runs; a reentrant submission of the same nonce now sees Used.
	if err := e.nonces.SetAuthorizationState(authorizer, nonce, true); err != nil {
		return fmt.Errorf("failed to mark authorization used: %w", err)
	}

	valid, err := e.isValidSignatureNow(ctx, authorizer, digest, signature)
	if err != nil {
		e.restoreAuthorizationState(authorizer, nonce)
		return err
	}
	if !valid {
		e.restoreAuthorizationState(authorizer, nonce)
		return NewAuthorizationError(ErrCodeInvalidSignature, "invalid authorization signature", map[string]interface{}{
			"authorizer": authorizer.Hex(),
			"nonce":      nonce.Hex(),
		})
	}

	if err := effect(ctx); err != nil {
		e.restoreAuthorizationState(authorizer, nonce)
		return err
	}

	return nil
}

// restoreAuthorizationState unwinds a tentative used marker after a failed
// attempt.
func (e *Engine) restoreAuthorizationState(authorizer common.Address, nonce common.Hash) {
	if err := e.nonces.SetAuthorizationState(authorizer, nonce, false); err != nil {
		// Fails safe: the slot stays burned and the signer must pick a new
		// nonce, but no funds moved.
		e.logger.Error("failed to restore authorization state",
			zap.Stringer("authorizer", authorizer),
			zap.Stringer("nonce", nonce),
			zap.Error(err))
	}
}
