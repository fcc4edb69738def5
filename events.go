package authcore

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Event is implemented by every record the engine emits on a successful
// mutating operation.
type Event interface {
	// Kind returns a stable machine-readable event name.
	Kind() string
}

// EventMeta carries the fields shared by all events.
type EventMeta struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func newEventMeta() EventMeta {
	return EventMeta{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

// ApprovalEvent records a successful permit: the owner's allowance for the
// spender was replaced with Value.
type ApprovalEvent struct {
	EventMeta
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *big.Int       `json:"value"`
}

func (ApprovalEvent) Kind() string { return "approval" }

// TransferEvent records a ledger transfer driven by a transfer or receive
// authorization.
type TransferEvent struct {
	EventMeta
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

func (TransferEvent) Kind() string { return "transfer" }

// AuthorizationUsedEvent records the consumption of a (authorizer, nonce)
// slot by a transfer or receive authorization.
type AuthorizationUsedEvent struct {
	EventMeta
	Authorizer common.Address `json:"authorizer"`
	Nonce      common.Hash    `json:"nonce"`
}

func (AuthorizationUsedEvent) Kind() string { return "authorization_used" }

// AuthorizationCanceledEvent records the permanent retirement of an unused
// (authorizer, nonce) slot without a transfer.
type AuthorizationCanceledEvent struct {
	EventMeta
	Authorizer common.Address `json:"authorizer"`
	Nonce      common.Hash    `json:"nonce"`
}

func (AuthorizationCanceledEvent) Kind() string { return "authorization_canceled" }

func (e *Engine) emit(ev Event) {
	if e.events != nil {
		e.events.Emit(ev)
	}
}
