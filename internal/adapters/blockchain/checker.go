package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// CodeReader reads deployed bytecode
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Checker verifies recorded addresses against the chain
type Checker struct {
	reader  CodeReader
	timeout time.Duration
}

// NewChecker creates a new chain checker
func NewChecker(reader CodeReader) *Checker {
	return &Checker{reader: reader, timeout: 5 * time.Second}
}

// CheckRecord reports whether the proxy and implementation of record still
// have code. A record left behind by a reset local chain fails this check.
func (c *Checker) CheckRecord(ctx context.Context, record *models.AddressRecord) (bool, string, error) {
	ok, err := c.hasCode(ctx, record.ProxyAddress)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, fmt.Sprintf("no code at proxy %s", record.ProxyAddress.Hex()), nil
	}

	if record.ImplementationAddress == (common.Address{}) {
		return true, "", nil
	}
	ok, err = c.hasCode(ctx, record.ImplementationAddress)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, fmt.Sprintf("no code at implementation %s", record.ImplementationAddress.Hex()), nil
	}
	return true, "", nil
}

func (c *Checker) hasCode(ctx context.Context, addr common.Address) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	code, err := c.reader.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check code at %s: %w", domain.ErrNetwork, addr.Hex(), err)
	}
	return len(code) > 0, nil
}

var _ usecase.ChainChecker = (*Checker)(nil)
