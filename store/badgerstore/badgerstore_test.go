package badgerstore_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stabletoken/authcore/store/badgerstore"
)

func openStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	s, err := badgerstore.OpenInMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPermitNonceRoundTrip(t *testing.T) {
	s := openStore(t)
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	nonce, err := s.PermitNonce(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)

	require.NoError(t, s.SetPermitNonce(owner, 42))

	nonce, err = s.PermitNonce(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), nonce)
}

func TestAuthorizationStateRoundTrip(t *testing.T) {
	s := openStore(t)
	authorizer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	nonce := common.HexToHash("0xbb")

	used, err := s.AuthorizationState(authorizer, nonce)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, s.SetAuthorizationState(authorizer, nonce, true))

	used, err = s.AuthorizationState(authorizer, nonce)
	require.NoError(t, err)
	assert.True(t, used)

	require.NoError(t, s.SetAuthorizationState(authorizer, nonce, false))

	used, err = s.AuthorizationState(authorizer, nonce)
	require.NoError(t, err)
	assert.False(t, used)
}

func TestNonceSpacesAreDisjoint(t *testing.T) {
	s := openStore(t)
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")

	// A permit counter write must not shadow any authorization slot for the
	// same account, whatever the nonce bytes.
	require.NoError(t, s.SetPermitNonce(account, 7))

	used, err := s.AuthorizationState(account, common.Hash{})
	require.NoError(t, err)
	assert.False(t, used)
}

func TestDurability(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	nonce := common.HexToHash("0xcc")

	s, err := badgerstore.Open(dir, logger)
	require.NoError(t, err)
	require.NoError(t, s.SetPermitNonce(owner, 9))
	require.NoError(t, s.SetAuthorizationState(owner, nonce, true))
	require.NoError(t, s.Close())

	// Replay-protection state survives a restart.
	s, err = badgerstore.Open(dir, logger)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.PermitNonce(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got)

	used, err := s.AuthorizationState(owner, nonce)
	require.NoError(t, err)
	assert.True(t, used)

	require.NoError(t, s.HealthCheck())
}

func TestClosedStore(t *testing.T) {
	s, err := badgerstore.OpenInMemory(zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.PermitNonce(common.Address{})
	require.Error(t, err)
	require.Error(t, s.HealthCheck())
}
