package memory_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stabletoken/authcore/ledger/memory"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	l.Mint(alice, big.NewInt(100))

	require.NoError(t, l.Transfer(ctx, alice, bob, big.NewInt(30)))
	assert.Equal(t, big.NewInt(70), l.BalanceOf(alice))
	assert.Equal(t, big.NewInt(30), l.BalanceOf(bob))
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	l.Mint(alice, big.NewInt(10))

	err := l.Transfer(ctx, alice, bob, big.NewInt(30))
	require.Error(t, err)

	// Atomic failure: nothing moved.
	assert.Equal(t, big.NewInt(10), l.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), l.BalanceOf(bob))
}

func TestApproveReplaces(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(100)))
	require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(5)))
	assert.Equal(t, big.NewInt(5), l.Allowance(alice, bob))
}

func TestNegativeValuesRejected(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	l.Mint(alice, big.NewInt(100))

	require.Error(t, l.Transfer(ctx, alice, bob, big.NewInt(-1)))
	require.Error(t, l.Approve(ctx, alice, bob, big.NewInt(-1)))
}
