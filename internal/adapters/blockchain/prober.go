package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// Prober asks RPC endpoints which chain they serve
type Prober struct {
	timeout time.Duration
}

// NewProber creates a new chain ID prober
func NewProber() *Prober {
	return &Prober{timeout: 5 * time.Second}
}

// ChainID dials rpcURL and returns its chain ID
func (p *Prober) ChainID(ctx context.Context, rpcURL string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to connect: %w", domain.ErrNetwork, err)
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get chain ID: %w", domain.ErrNetwork, err)
	}
	return id.Uint64(), nil
}

var _ usecase.ChainProber = (*Prober)(nil)
