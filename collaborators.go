package authcore

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SystemClock reads the host's wall clock, truncated to unix seconds.
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// StaticChainID serves a fixed network identity. Suitable for deployments
// whose chain identity cannot change at runtime; deployments that can fork
// should back ChainIDProvider with a live node query instead.
type StaticChainID struct {
	ID *big.Int
}

func (s StaticChainID) ChainID(ctx context.Context) (*big.Int, error) {
	if s.ID == nil {
		return nil, fmt.Errorf("static chain ID is not set")
	}
	return s.ID, nil
}

// KeyOnlyAccounts is an AccountInspector for deployments where every signer
// is a raw key holder. IsProgrammable always reports false, so signature
// verification never leaves the ECDSA recovery path.
type KeyOnlyAccounts struct{}

func (KeyOnlyAccounts) IsProgrammable(ctx context.Context, account common.Address) (bool, error) {
	return false, nil
}

func (KeyOnlyAccounts) ValidateSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) ([]byte, error) {
	return nil, fmt.Errorf("account %s is not programmable", account.Hex())
}
