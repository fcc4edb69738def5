package memory_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stabletoken/authcore/store/memory"
)

func TestPermitNonces(t *testing.T) {
	s := memory.New()
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	nonce, err := s.PermitNonce(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce, "unseen owner starts at 0")

	require.NoError(t, s.SetPermitNonce(owner, 3))

	nonce, err = s.PermitNonce(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), nonce)

	// Other owners are unaffected.
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	nonce, err = s.PermitNonce(other)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}

func TestAuthorizationState(t *testing.T) {
	s := memory.New()
	authorizer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	nonce := common.HexToHash("0xaa")

	used, err := s.AuthorizationState(authorizer, nonce)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, s.SetAuthorizationState(authorizer, nonce, true))

	used, err = s.AuthorizationState(authorizer, nonce)
	require.NoError(t, err)
	assert.True(t, used)

	// Same nonce under a different authorizer is its own slot.
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	used, err = s.AuthorizationState(other, nonce)
	require.NoError(t, err)
	assert.False(t, used)

	// Clearing unwinds a tentative marker.
	require.NoError(t, s.SetAuthorizationState(authorizer, nonce, false))
	used, err = s.AuthorizationState(authorizer, nonce)
	require.NoError(t, err)
	assert.False(t, used)
}
