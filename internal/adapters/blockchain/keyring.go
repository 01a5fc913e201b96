package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// Keyring holds the named accounts of a project
type Keyring struct {
	keys      map[string]*ecdsa.PrivateKey
	addresses map[string]common.Address
}

// NewKeyring parses the configured accounts. Every problem is reported at once.
func NewKeyring(accounts map[string]config.AccountConfig) (*Keyring, error) {
	k := &Keyring{
		keys:      make(map[string]*ecdsa.PrivateKey),
		addresses: make(map[string]common.Address),
	}

	var errs *multierror.Error
	for _, role := range lo.Keys(accounts) {
		account := accounts[role]
		if account.PrivateKey == "" && account.Address == "" {
			errs = multierror.Append(errs, fmt.Errorf("account %s: needs private_key or address", role))
			continue
		}

		if account.PrivateKey != "" {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(account.PrivateKey, "0x"))
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("account %s: invalid private key: %w", role, err))
				continue
			}
			k.keys[role] = key
			k.addresses[role] = crypto.PubkeyToAddress(key.PublicKey)
		}

		if account.Address != "" {
			if !common.IsHexAddress(account.Address) {
				errs = multierror.Append(errs, fmt.Errorf("account %s: invalid address %q", role, account.Address))
				continue
			}
			addr := common.HexToAddress(account.Address)
			if derived, ok := k.addresses[role]; ok && derived != addr {
				errs = multierror.Append(errs, fmt.Errorf("account %s: address %s does not match private key (%s)", role, addr.Hex(), derived.Hex()))
				continue
			}
			k.addresses[role] = addr
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return k, nil
}

// Address returns the address of role
func (k *Keyring) Address(role string) (common.Address, error) {
	addr, ok := k.addresses[role]
	if !ok {
		return common.Address{}, fmt.Errorf("account %s: %w", role, domain.ErrNotFound)
	}
	return addr, nil
}

// ResolveAccount returns the address of a named account
func (k *Keyring) ResolveAccount(ctx context.Context, role string) (common.Address, error) {
	return k.Address(role)
}

// CanSign reports whether role has a private key
func (k *Keyring) CanSign(role string) bool {
	_, ok := k.keys[role]
	return ok
}

// Transactor returns signing options for role on chainID
func (k *Keyring) Transactor(role string, chainID *big.Int) (*bind.TransactOpts, error) {
	key, ok := k.keys[role]
	if !ok {
		if _, known := k.addresses[role]; known {
			return nil, fmt.Errorf("account %s has no private key and cannot sign", role)
		}
		return nil, fmt.Errorf("account %s: %w", role, domain.ErrNotFound)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor for %s: %w", role, err)
	}
	return opts, nil
}

// Roles returns the configured account names, sorted
func (k *Keyring) Roles() []string {
	roles := lo.Keys(k.addresses)
	slices.Sort(roles)
	return roles
}
