package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/catapult/internal/adapters/parameters"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// Backend is the chain access the executor needs. *ethclient.Client and the
// simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// ProxySource loads a compiled proxy contract
type ProxySource func(ctx context.Context) (*models.Implementation, error)

// ProxyArtifacts are the contracts every unit is deployed behind. Proxy is a
// TransparentUpgradeableProxy whose constructor takes (logic, admin, data).
// Admin is the ProxyAdmin contract shared by the proxies of a network.
type ProxyArtifacts struct {
	Proxy ProxySource
	Admin ProxySource
}

// StaticProxy returns a ProxySource for an already loaded artifact
func StaticProxy(impl *models.Implementation) ProxySource {
	return func(context.Context) (*models.Implementation, error) {
		return impl, nil
	}
}

// lazyArtifact loads an artifact once, on first use
type lazyArtifact struct {
	what   string
	source ProxySource

	once sync.Once
	impl *models.Implementation
	err  error
}

func (l *lazyArtifact) load(ctx context.Context) (*models.Implementation, error) {
	l.once.Do(func() {
		if l.source == nil {
			l.err = fmt.Errorf("%w: no %s artifact configured", domain.ErrInvalidUnit, l.what)
			return
		}
		l.impl, l.err = l.source(ctx)
	})
	if l.err != nil {
		return nil, fmt.Errorf("failed to load %s artifact: %w", l.what, l.err)
	}
	return l.impl, nil
}

// Executor deploys implementations behind transparent proxies with go-ethereum
type Executor struct {
	backend Backend
	keyring *Keyring
	timeout time.Duration
	log     *slog.Logger

	chainOnce sync.Once
	chainID   *big.Int
	chainErr  error

	proxy *lazyArtifact
	admin *lazyArtifact
}

// NewExecutor creates a chain executor. Proxy artifacts are loaded on first use.
func NewExecutor(backend Backend, keyring *Keyring, artifacts ProxyArtifacts, timeout time.Duration, log *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Executor{
		backend: backend,
		keyring: keyring,
		timeout: timeout,
		log:     log.With("component", "executor"),
		proxy:   &lazyArtifact{what: "proxy", source: artifacts.Proxy},
		admin:   &lazyArtifact{what: "proxy admin", source: artifacts.Admin},
	}
}

// ResolveAccount returns the address of a named account
func (e *Executor) ResolveAccount(ctx context.Context, role string) (common.Address, error) {
	return e.keyring.ResolveAccount(ctx, role)
}

// DeployProxyAdmin deploys a ProxyAdmin contract owned by req.Owner. Artifacts
// whose constructor takes the initial owner get it passed explicitly; older
// ones take ownership from the sender.
func (e *Executor) DeployProxyAdmin(ctx context.Context, req usecase.ProxyAdminRequest) (*usecase.ProxyAdminReceipt, error) {
	artifact, err := e.admin.load(ctx)
	if err != nil {
		return nil, err
	}
	auth, err := e.transactor(ctx, req.Owner)
	if err != nil {
		return nil, err
	}

	var params []any
	if inputs := artifact.ABI.Constructor.Inputs; len(inputs) == 1 && inputs[0].Type.T == abi.AddressTy {
		params = append(params, auth.From)
	}

	address, receipt, err := e.deploy(ctx, auth, models.DefaultProxyAdmin, artifact.ABI, artifact.Bytecode, params...)
	if err != nil {
		return nil, err
	}
	return &usecase.ProxyAdminReceipt{
		Address:     address,
		Contract:    artifact.Name,
		Hash:        artifact.Hash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// DeployBehindProxy deploys the implementation, then a proxy whose constructor
// delegates the initializer call so creation and initialization are one
// transaction.
func (e *Executor) DeployBehindProxy(ctx context.Context, req usecase.DeployRequest) (*usecase.DeployReceipt, error) {
	impl := req.Implementation
	if impl == nil {
		return nil, fmt.Errorf("%w: no implementation for %s", domain.ErrInvalidUnit, req.Unit)
	}

	proxy, err := e.proxy.load(ctx)
	if err != nil {
		return nil, err
	}
	initData, err := EncodeInitializer(impl.ABI, req.InitMethod, req.InitArgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidUnit, req.Unit, err)
	}
	auth, err := e.transactor(ctx, req.From)
	if err != nil {
		return nil, err
	}
	admin, err := e.proxyAdmin(req, auth.From)
	if err != nil {
		return nil, err
	}

	implAddr, _, err := e.deploy(ctx, auth, req.Unit+" implementation", impl.ABI, impl.Bytecode)
	if err != nil {
		return nil, err
	}

	proxyAddr, receipt, err := e.deploy(ctx, auth, req.Unit+" proxy", proxy.ABI, proxy.Bytecode, implAddr, admin, initData)
	if err != nil {
		// the implementation stays on chain unused
		e.log.Warn("proxy deployment failed, implementation left orphaned", "unit", req.Unit, "implementation", implAddr.Hex())
		return nil, err
	}

	return &usecase.DeployReceipt{
		ProxyAddress:          proxyAddr,
		ImplementationAddress: implAddr,
		ImplementationHash:    impl.Hash,
		ProxyAdmin:            admin,
		BlockNumber:           receipt.BlockNumber.Uint64(),
	}, nil
}

// proxyAdmin picks the admin passed to the proxy constructor. A transparent
// proxy never forwards calls from its admin, so the signer cannot be it.
func (e *Executor) proxyAdmin(req usecase.DeployRequest, signer common.Address) (common.Address, error) {
	if req.AdminContract != (common.Address{}) {
		return req.AdminContract, nil
	}
	if req.Admin == "" {
		return common.Address{}, fmt.Errorf("%w: %s has no proxy admin", domain.ErrInvalidUnit, req.Unit)
	}
	admin, err := e.keyring.Address(req.Admin)
	if err != nil {
		return common.Address{}, err
	}
	if admin == signer {
		return common.Address{}, fmt.Errorf("%w: %s: proxy admin %s is also the signer and could not call through the proxy", domain.ErrInvalidUnit, req.Unit, req.Admin)
	}
	return admin, nil
}

// UpgradeImplementation deploys the new implementation and points the proxy at
// it, through the ProxyAdmin contract when one is given and directly from the
// admin account otherwise. No initializer runs.
func (e *Executor) UpgradeImplementation(ctx context.Context, req usecase.UpgradeRequest) (*usecase.UpgradeReceipt, error) {
	impl := req.Implementation
	if impl == nil {
		return nil, fmt.Errorf("%w: no implementation for %s", domain.ErrInvalidUnit, req.Unit)
	}

	target, targetABI, method, extra, err := e.upgradeTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	deployer, err := e.transactor(ctx, req.From)
	if err != nil {
		return nil, err
	}
	admin, err := e.transactor(ctx, req.Admin)
	if err != nil {
		return nil, err
	}

	implAddr, _, err := e.deploy(ctx, deployer, req.Unit+" implementation", impl.ABI, impl.Bytecode)
	if err != nil {
		return nil, err
	}

	params := []any{implAddr}
	if req.AdminContract != (common.Address{}) {
		params = []any{req.ProxyAddress, implAddr}
	}
	bound := bind.NewBoundContract(target, targetABI, e.backend, e.backend, e.backend)
	admin.Context = ctx
	tx, err := bound.Transact(admin, method, append(params, extra...)...)
	if err != nil {
		return nil, classify(fmt.Errorf("%s %s: %w", method, req.Unit, err))
	}
	e.log.Debug("upgrade transaction sent", "unit", req.Unit, "tx", tx.Hash().Hex(), "implementation", implAddr.Hex())

	receipt, err := e.wait(ctx, tx, req.Unit+" upgrade")
	if err != nil {
		return nil, err
	}

	return &usecase.UpgradeReceipt{
		ImplementationAddress: implAddr,
		ImplementationHash:    impl.Hash,
		BlockNumber:           receipt.BlockNumber.Uint64(),
	}, nil
}

// upgradeTarget returns the contract the upgrade call goes to, its ABI and
// the method with the arguments that follow the addresses
func (e *Executor) upgradeTarget(ctx context.Context, req usecase.UpgradeRequest) (common.Address, abi.ABI, string, []any, error) {
	if req.AdminContract != (common.Address{}) {
		admin, err := e.admin.load(ctx)
		if err != nil {
			return common.Address{}, abi.ABI{}, "", nil, err
		}
		method, extra, err := adminUpgradeCall(admin.ABI)
		return req.AdminContract, admin.ABI, method, extra, err
	}

	proxy, err := e.proxy.load(ctx)
	if err != nil {
		return common.Address{}, abi.ABI{}, "", nil, err
	}
	method, extra, err := upgradeCall(proxy.ABI)
	return req.ProxyAddress, proxy.ABI, method, extra, err
}

func (e *Executor) deploy(ctx context.Context, auth *bind.TransactOpts, what string, contractABI abi.ABI, bytecode []byte, params ...any) (common.Address, *types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	auth.Context = ctx

	address, tx, _, err := bind.DeployContract(auth, contractABI, bytecode, e.backend, params...)
	if err != nil {
		return common.Address{}, nil, classify(fmt.Errorf("deploy %s: %w", what, err))
	}
	e.log.Debug("deployment transaction sent", "contract", what, "address", address.Hex(), "tx", tx.Hash().Hex())

	receipt, err := e.wait(ctx, tx, what)
	if err != nil {
		return common.Address{}, nil, err
	}
	return address, receipt, nil
}

func (e *Executor) wait(ctx context.Context, tx *types.Transaction, what string) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s (tx %s): %w", domain.ErrNetwork, what, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s (tx %s, block %d)", domain.ErrExecutionReverted, what, tx.Hash().Hex(), receipt.BlockNumber.Uint64())
	}
	return receipt, nil
}

func (e *Executor) transactor(ctx context.Context, role string) (*bind.TransactOpts, error) {
	e.chainOnce.Do(func() {
		e.chainID, e.chainErr = e.backend.ChainID(ctx)
	})
	if e.chainErr != nil {
		return nil, fmt.Errorf("%w: failed to get chain ID: %w", domain.ErrNetwork, e.chainErr)
	}
	return e.keyring.Transactor(role, e.chainID)
}

// EncodeInitializer packs the initializer call passed to the proxy
// constructor. An empty method means no initializer.
func EncodeInitializer(contractABI abi.ABI, method string, args []any) ([]byte, error) {
	if method == "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("initializer arguments given without an initializer method")
		}
		return []byte{}, nil
	}
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("initializer %s not found in ABI", method)
	}
	coerced, err := parameters.CoerceArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("initializer %s: %w", m.Sig, err)
	}
	data, err := contractABI.Pack(method, coerced...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Sig, err)
	}
	return data, nil
}

// upgradeCall picks the upgrade entry point the proxy exposes
func upgradeCall(proxyABI abi.ABI) (string, []any, error) {
	if _, ok := proxyABI.Methods["upgradeTo"]; ok {
		return "upgradeTo", nil, nil
	}
	if _, ok := proxyABI.Methods["upgradeToAndCall"]; ok {
		return "upgradeToAndCall", []any{[]byte{}}, nil
	}
	return "", nil, fmt.Errorf("%w: proxy ABI has neither upgradeTo nor upgradeToAndCall", domain.ErrInvalidUnit)
}

// adminUpgradeCall picks the upgrade entry point of a ProxyAdmin. Both take
// the proxy and the new implementation first.
func adminUpgradeCall(adminABI abi.ABI) (string, []any, error) {
	if _, ok := adminABI.Methods["upgrade"]; ok {
		return "upgrade", nil, nil
	}
	if _, ok := adminABI.Methods["upgradeAndCall"]; ok {
		return "upgradeAndCall", []any{[]byte{}}, nil
	}
	return "", nil, fmt.Errorf("%w: proxy admin ABI has neither upgrade nor upgradeAndCall", domain.ErrInvalidUnit)
}

// classify tags an error from go-ethereum as a revert or a network failure
func classify(err error) error {
	if errors.Is(err, domain.ErrExecutionReverted) || errors.Is(err, domain.ErrNetwork) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "revert") {
		return fmt.Errorf("%w: %w", domain.ErrExecutionReverted, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
}

var _ usecase.ChainExecutor = (*Executor)(nil)
