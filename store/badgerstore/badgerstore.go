// Package badgerstore provides a durable, Badger-backed NonceStore.
//
// Replay-protection state must survive process restarts: a lost used-nonce
// marker would let an already-settled authorization execute a second time.
// Badger gives us fsync-on-write durability with a pure-Go embedded store.
package badgerstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Key prefixes for namespacing. The two nonce spaces live under distinct
// prefixes so a permit counter can never collide with an authorization slot.
const (
	keyPrefixPermitNonce = "permit:"
	keyPrefixAuthState   = "auth:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// storeLogger forwards Badger's internal diagnostics to zap at the
// matching levels.
type storeLogger struct {
	z *zap.SugaredLogger
}

var _ badgerdb.Logger = storeLogger{}

func (l storeLogger) Errorf(format string, args ...interface{}) { l.z.Errorf(format, args...) }

func (l storeLogger) Warningf(format string, args ...interface{}) { l.z.Warnf(format, args...) }

func (l storeLogger) Infof(format string, args ...interface{}) { l.z.Infof(format, args...) }

func (l storeLogger) Debugf(format string, args ...interface{}) { l.z.Debugf(format, args...) }

// Store is a durable NonceStore backed by a Badger database.
type Store struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// Open opens (or creates) a Badger-backed store at dataPath. SyncWrites is
// enabled so a used-nonce marker is on disk before the operation that wrote
// it reports success. A background goroutine runs value-log GC.
func Open(dataPath string, logger *zap.Logger) (*Store, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = storeLogger{z: logger.Sugar()}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gcCancel = cancel
	s.gcWg.Add(1)
	go s.runGC(ctx)

	logger.Sugar().Infow("nonce store opened", "path", absPath)

	return s, nil
}

// OpenInMemory opens a non-durable Badger instance. Intended for tests that
// exercise the Badger code path without touching disk.
func OpenInMemory(logger *zap.Logger) (*Store, error) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true)
	opts.Logger = storeLogger{z: logger.Sugar()}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema initializes or validates the schema version
func (s *Store) initSchema() error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic value-log garbage collection in the background
func (s *Store) runGC(ctx context.Context) {
	defer s.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				s.logger.Sugar().Warnw("badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func permitNonceKey(owner common.Address) []byte {
	return append([]byte(keyPrefixPermitNonce), owner.Bytes()...)
}

func authStateKey(authorizer common.Address, nonce common.Hash) []byte {
	key := append([]byte(keyPrefixAuthState), authorizer.Bytes()...)
	return append(key, nonce.Bytes()...)
}

// PermitNonce returns the owner's next expected permit counter value.
func (s *Store) PermitNonce(owner common.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("nonce store is closed")
	}

	var nonce uint64

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(permitNonceKey(owner))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Unseen owner starts at 0
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("invalid permit nonce data length: %d", len(val))
			}
			nonce = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load permit nonce: %w", err)
	}

	return nonce, nil
}

// SetPermitNonce records the owner's next expected counter value.
func (s *Store) SetPermitNonce(owner common.Address, nonce uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("nonce store is closed")
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, nonce)

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(permitNonceKey(owner), buf)
	})
}

// AuthorizationState reports whether the (authorizer, nonce) slot is used.
func (s *Store) AuthorizationState(authorizer common.Address, nonce common.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	used := false

	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(authStateKey(authorizer, nonce))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		used = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to load authorization state: %w", err)
	}

	return used, nil
}

// SetAuthorizationState records or clears the used marker for the slot.
func (s *Store) SetAuthorizationState(authorizer common.Address, nonce common.Hash, used bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("nonce store is closed")
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if used {
			return txn.Set(authStateKey(authorizer, nonce), []byte{1})
		}
		return txn.Delete(authStateKey(authorizer, nonce))
	})
}

// Close shuts down the store
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil // Already closed, idempotent
	}
	s.closed = true
	s.mu.Unlock()

	if s.gcCancel != nil {
		s.gcCancel()
	}
	s.gcWg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	return nil
}

// HealthCheck verifies the store is operational
func (s *Store) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("nonce store is closed")
	}

	return s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
