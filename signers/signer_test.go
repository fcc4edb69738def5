package signers_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stabletoken/authcore/eip712"
	"github.com/stabletoken/authcore/signers"
)

var testDomain = signers.Domain{
	Name:    "Test Dollar",
	Version: "1",
	ChainID: big.NewInt(8453),
}

func TestNewKeySignerFromPrivateKey(t *testing.T) {
	// The first well-known hardhat/anvil test account.
	signer, err := signers.NewKeySignerFromPrivateKey(
		"0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	assert.Equal(t,
		common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		signer.Address())

	// Prefix is optional.
	same, err := signers.NewKeySignerFromPrivateKey(
		"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), same.Address())

	_, err = signers.NewKeySignerFromPrivateKey("not-hex")
	require.Error(t, err)
}

func TestSignDigestRecovers(t *testing.T) {
	signer, err := signers.NewRandomKeySigner()
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("payload"))
	sig, err := signer.SignDigest(digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	normalized := make([]byte, 65)
	copy(normalized, sig)
	normalized[64] -= 27

	pubkey, err := crypto.SigToPub(digest.Bytes(), normalized)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pubkey))
}

func TestSignaturesAreDomainBound(t *testing.T) {
	signer, err := signers.NewRandomKeySigner()
	require.NoError(t, err)

	permit := eip712.Permit{
		Owner:    signer.Address(),
		Spender:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:    big.NewInt(1),
		Nonce:    big.NewInt(0),
		Deadline: big.NewInt(1),
	}

	sigA, err := signer.SignPermit(testDomain, permit)
	require.NoError(t, err)

	otherDomain := testDomain
	otherDomain.ChainID = big.NewInt(1)
	sigB, err := signer.SignPermit(otherDomain, permit)
	require.NoError(t, err)

	assert.NotEqual(t, sigA, sigB, "same message under another domain signs differently")
}

func TestRandomNonce(t *testing.T) {
	seen := make(map[common.Hash]bool)
	for i := 0; i < 64; i++ {
		nonce, err := signers.RandomNonce()
		require.NoError(t, err)
		require.False(t, seen[nonce], "nonces must not repeat")
		seen[nonce] = true
	}
}
