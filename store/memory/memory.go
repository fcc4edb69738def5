// Package memory provides an in-memory NonceStore.
//
// Suitable for tests and single-instance deployments where nonce state does
// not need to survive a restart. For durable state use store/badgerstore.
package memory

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type authKey struct {
	authorizer common.Address
	nonce      common.Hash
}

// Store is a mutex-guarded in-memory NonceStore.
type Store struct {
	mu           sync.RWMutex
	permitNonces map[common.Address]uint64
	usedNonces   map[authKey]bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		permitNonces: make(map[common.Address]uint64),
		usedNonces:   make(map[authKey]bool),
	}
}

func (s *Store) PermitNonce(owner common.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permitNonces[owner], nil
}

func (s *Store) SetPermitNonce(owner common.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permitNonces[owner] = nonce
	return nil
}

func (s *Store) AuthorizationState(authorizer common.Address, nonce common.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usedNonces[authKey{authorizer, nonce}], nil
}

func (s *Store) SetAuthorizationState(authorizer common.Address, nonce common.Hash, used bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if used {
		s.usedNonces[authKey{authorizer, nonce}] = true
	} else {
		delete(s.usedNonces, authKey{authorizer, nonce})
	}
	return nil
}
