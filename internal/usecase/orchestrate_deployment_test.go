package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/adapters/repository/records"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// fakeExecutor hands out sequential addresses and remembers every call
type fakeExecutor struct {
	next     int64
	block    uint64
	admins   []usecase.ProxyAdminRequest
	deploys  []usecase.DeployRequest
	upgrades []usecase.UpgradeRequest
	failOn   map[string]error
	onDeploy func(ctx context.Context, req usecase.DeployRequest)
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{next: 0x100, block: 1, failOn: map[string]error{}}
}

func (f *fakeExecutor) address() common.Address {
	f.next++
	return common.BigToAddress(big.NewInt(f.next))
}

func (f *fakeExecutor) DeployProxyAdmin(ctx context.Context, req usecase.ProxyAdminRequest) (*usecase.ProxyAdminReceipt, error) {
	f.admins = append(f.admins, req)
	if err := f.failOn[models.DefaultProxyAdmin]; err != nil {
		return nil, err
	}
	f.block++
	return &usecase.ProxyAdminReceipt{
		Address:     f.address(),
		Contract:    "ProxyAdmin",
		Hash:        common.BytesToHash([]byte{0xad}),
		BlockNumber: f.block,
	}, nil
}

func (f *fakeExecutor) ResolveAccount(ctx context.Context, role string) (common.Address, error) {
	return common.HexToAddress("0xd0"), nil
}

func (f *fakeExecutor) DeployBehindProxy(ctx context.Context, req usecase.DeployRequest) (*usecase.DeployReceipt, error) {
	f.deploys = append(f.deploys, req)
	if f.onDeploy != nil {
		f.onDeploy(ctx, req)
	}
	if err := f.failOn[req.Unit]; err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("executor saw cancelled context: %w", ctx.Err())
	}
	f.block++
	return &usecase.DeployReceipt{
		ImplementationAddress: f.address(),
		ProxyAddress:          f.address(),
		ImplementationHash:    req.Implementation.Hash,
		ProxyAdmin:            req.AdminContract,
		BlockNumber:           f.block,
	}, nil
}

func (f *fakeExecutor) UpgradeImplementation(ctx context.Context, req usecase.UpgradeRequest) (*usecase.UpgradeReceipt, error) {
	f.upgrades = append(f.upgrades, req)
	if err := f.failOn[req.Unit]; err != nil {
		return nil, err
	}
	f.block++
	return &usecase.UpgradeReceipt{
		ImplementationAddress: f.address(),
		ImplementationHash:    req.Implementation.Hash,
		BlockNumber:           f.block,
	}, nil
}

// MockChainExecutor is a mock implementation of ChainExecutor
type MockChainExecutor struct {
	mock.Mock
}

func (m *MockChainExecutor) DeployProxyAdmin(ctx context.Context, req usecase.ProxyAdminRequest) (*usecase.ProxyAdminReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ProxyAdminReceipt), args.Error(1)
}

func (m *MockChainExecutor) ResolveAccount(ctx context.Context, role string) (common.Address, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockChainExecutor) DeployBehindProxy(ctx context.Context, req usecase.DeployRequest) (*usecase.DeployReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.DeployReceipt), args.Error(1)
}

func (m *MockChainExecutor) UpgradeImplementation(ctx context.Context, req usecase.UpgradeRequest) (*usecase.UpgradeReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UpgradeReceipt), args.Error(1)
}

// droppingRegistry silently discards writes for one unit
type droppingRegistry struct {
	*records.MemoryRepository
	drop string
}

func (d *droppingRegistry) Put(ctx context.Context, record *models.AddressRecord) error {
	if record.UnitName == d.drop {
		return nil
	}
	return d.MemoryRepository.Put(ctx, record)
}

func (d *droppingRegistry) MarkInitialized(ctx context.Context, unit string) error {
	if unit == d.drop {
		return nil
	}
	return d.MemoryRepository.MarkInitialized(ctx, unit)
}

// recordingSink collects progress stages
type recordingSink struct {
	usecase.NopProgress
	stages []string
}

func (r *recordingSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.stages = append(r.stages, event.Stage)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func implementation(name string, version byte) *models.Implementation {
	return &models.Implementation{Name: name, Hash: common.BytesToHash([]byte{version})}
}

func royaltyUnit() *models.DeploymentUnit {
	return &models.DeploymentUnit{
		Name:           "RoyaltyModule",
		Contract:       "RoyaltyModule",
		InitMethod:     models.DefaultInitMethod,
		Implementation: implementation("RoyaltyModule", 1),
		BuildInitArgs: func(map[string]common.Address) ([]any, error) {
			return nil, nil
		},
	}
}

func auctionUnit() *models.DeploymentUnit {
	return &models.DeploymentUnit{
		Name:           "AuctionModule",
		Contract:       "AuctionModule",
		Dependencies:   []string{"RoyaltyModule"},
		InitMethod:     models.DefaultInitMethod,
		Implementation: implementation("AuctionModule", 1),
		BuildInitArgs: func(deps map[string]common.Address) ([]any, error) {
			return []any{deps["RoyaltyModule"]}, nil
		},
	}
}

func newOrchestrator(registry usecase.AddressRegistry, locker usecase.RunLocker, executor usecase.ChainExecutor, sink usecase.ProgressSink) *usecase.OrchestrateDeployment {
	return usecase.NewOrchestrateDeployment(registry, executor, locker, sink, testLogger())
}

func TestOrchestrateDeployment(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh deploy propagates dependency address", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		sink := &recordingSink{}
		o := newOrchestrator(registry, registry, executor, sink)

		// auction declared first to prove ordering comes from dependencies
		result, err := o.Run(ctx, []*models.DeploymentUnit{auctionUnit(), royaltyUnit()})
		require.NoError(t, err)

		require.Len(t, executor.deploys, 2)
		assert.Equal(t, "RoyaltyModule", executor.deploys[0].Unit)
		assert.Equal(t, "AuctionModule", executor.deploys[1].Unit)
		assert.Empty(t, executor.deploys[0].InitArgs)

		royalty := result.Records["RoyaltyModule"]
		auction := result.Records["AuctionModule"]
		require.NotNil(t, royalty)
		require.NotNil(t, auction)
		assert.Equal(t, []any{royalty.ProxyAddress}, executor.deploys[1].InitArgs)
		assert.Equal(t, []string{royalty.ProxyAddress.Hex()}, auction.InitArgs)
		assert.True(t, royalty.Initialized)
		assert.True(t, auction.Initialized)

		stored, err := registry.Get(ctx, "AuctionModule")
		require.NoError(t, err)
		assert.True(t, stored.Initialized)
		assert.Equal(t, []string{"RoyaltyModule"}, stored.Dependencies)
		assert.Equal(t, auctionUnit().ImplementationHash(), stored.ImplementationHash)

		assert.Equal(t, []string{
			usecase.StagePlanCreated,
			usecase.StageUnitStarting, usecase.StageUnitCompleted,
			usecase.StageUnitStarting, usecase.StageUnitCompleted,
			usecase.StageRunCompleted,
		}, sink.stages)
	})

	t.Run("second run sends nothing", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)
		units := []*models.DeploymentUnit{royaltyUnit(), auctionUnit()}

		first, err := o.Run(ctx, units)
		require.NoError(t, err)
		calls := len(executor.deploys)

		second, err := o.Run(ctx, units)
		require.NoError(t, err)
		assert.Equal(t, calls, len(executor.deploys))
		assert.Empty(t, executor.upgrades)
		for _, report := range second.Reports {
			assert.Equal(t, models.OutcomeReused, report.Outcome, report.Unit)
		}
		assert.Equal(t, first.Records["AuctionModule"].ProxyAddress, second.Records["AuctionModule"].ProxyAddress)
	})

	t.Run("changed implementation upgrades once without reinitializing", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		first, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit(), auctionUnit()})
		require.NoError(t, err)

		v2 := royaltyUnit()
		v2.Implementation = implementation("RoyaltyModule", 2)
		units := []*models.DeploymentUnit{v2, auctionUnit()}

		second, err := o.Run(ctx, units)
		require.NoError(t, err)
		require.Len(t, executor.upgrades, 1)
		assert.Len(t, executor.deploys, 2)
		assert.Equal(t, first.Records["RoyaltyModule"].ProxyAddress, executor.upgrades[0].ProxyAddress)

		upgraded := second.Records["RoyaltyModule"]
		assert.Equal(t, first.Records["RoyaltyModule"].ProxyAddress, upgraded.ProxyAddress)
		assert.Equal(t, v2.ImplementationHash(), upgraded.ImplementationHash)
		assert.NotEqual(t, first.Records["RoyaltyModule"].ImplementationAddress, upgraded.ImplementationAddress)
		assert.True(t, upgraded.Initialized)
		assert.Equal(t, first.Records["RoyaltyModule"].CreatedAt, upgraded.CreatedAt)
		assert.Equal(t, models.OutcomeUpgraded, second.Reports[0].Outcome)
		assert.Equal(t, models.OutcomeReused, second.Reports[1].Outcome)

		_, err = o.Run(ctx, units)
		require.NoError(t, err)
		assert.Len(t, executor.upgrades, 1)
	})

	t.Run("executor failure stops the run without a record", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := new(MockChainExecutor)
		royaltyProxy := common.HexToAddress("0xa1")
		executor.On("DeployProxyAdmin", mock.Anything, usecase.ProxyAdminRequest{Owner: models.DefaultSigner}).
			Return(&usecase.ProxyAdminReceipt{Address: common.HexToAddress("0xad"), BlockNumber: 6}, nil).Once()
		executor.On("DeployBehindProxy", mock.Anything, mock.MatchedBy(func(req usecase.DeployRequest) bool {
			return req.Unit == "RoyaltyModule"
		})).Return(&usecase.DeployReceipt{
			ProxyAddress:          royaltyProxy,
			ImplementationAddress: common.HexToAddress("0xb1"),
			BlockNumber:           7,
		}, nil).Once()
		executor.On("DeployBehindProxy", mock.Anything, mock.MatchedBy(func(req usecase.DeployRequest) bool {
			return req.Unit == "AuctionModule"
		})).Return(nil, fmt.Errorf("%w: initializer failed", domain.ErrExecutionReverted)).Once()

		later := &models.DeploymentUnit{
			Name:           "LaterModule",
			Dependencies:   []string{"AuctionModule"},
			Implementation: implementation("LaterModule", 1),
		}
		o := newOrchestrator(registry, registry, executor, nil)

		result, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit(), auctionUnit(), later})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrExecutionReverted)
		var unitErr *domain.UnitError
		require.ErrorAs(t, err, &unitErr)
		assert.Equal(t, "AuctionModule", unitErr.Unit)
		assert.Contains(t, err.Error(), "AuctionModule")

		_, err = registry.Get(ctx, "AuctionModule")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		royalty, err := registry.Get(ctx, "RoyaltyModule")
		require.NoError(t, err)
		assert.Equal(t, royaltyProxy, royalty.ProxyAddress)
		assert.Equal(t, royaltyUnit().ImplementationHash(), royalty.ImplementationHash)

		require.NotNil(t, result.Failed())
		assert.Equal(t, "AuctionModule", result.Failed().Unit)
		assert.Len(t, result.Reports, 2)
		executor.AssertExpectations(t)
		executor.AssertNumberOfCalls(t, "DeployBehindProxy", 2)
	})

	t.Run("cancellation stops between units", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		executor.onDeploy = func(ctx context.Context, req usecase.DeployRequest) {
			cancel()
		}
		o := newOrchestrator(registry, registry, executor, nil)

		result, err := o.Run(runCtx, []*models.DeploymentUnit{royaltyUnit(), auctionUnit()})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, executor.deploys, 1)

		royalty, err := registry.Get(ctx, "RoyaltyModule")
		require.NoError(t, err)
		assert.True(t, royalty.Initialized)
		assert.Contains(t, result.Records, "RoyaltyModule")

		_, err = registry.Get(ctx, "AuctionModule")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing dependency record is fatal", func(t *testing.T) {
		registry := &droppingRegistry{MemoryRepository: records.NewMemoryRepository(), drop: "RoyaltyModule"}
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		_, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit(), auctionUnit()})
		var notReady *domain.DependencyNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, "AuctionModule", notReady.Unit)
		assert.Equal(t, "RoyaltyModule", notReady.Dependency)
		assert.Len(t, executor.deploys, 1)
	})

	t.Run("configuration errors abort before any transaction", func(t *testing.T) {
		tests := []struct {
			name  string
			seed  []*models.AddressRecord
			units []*models.DeploymentUnit
			check func(t *testing.T, err error)
		}{
			{
				name:  "unknown dependency",
				units: []*models.DeploymentUnit{royaltyUnit(), {Name: "AuctionModule", Dependencies: []string{"Nonexistent"}, Implementation: implementation("AuctionModule", 1)}},
				check: func(t *testing.T, err error) {
					var unknown *domain.UnknownDependencyError
					require.ErrorAs(t, err, &unknown)
					assert.Equal(t, "Nonexistent", unknown.Dependency)
				},
			},
			{
				name: "cycle",
				units: []*models.DeploymentUnit{
					{Name: "A", Dependencies: []string{"B"}, Implementation: implementation("A", 1)},
					{Name: "B", Dependencies: []string{"A"}, Implementation: implementation("B", 1)},
				},
				check: func(t *testing.T, err error) {
					var cycle *domain.CycleDetectedError
					require.ErrorAs(t, err, &cycle)
				},
			},
			{
				name: "dependency set changed",
				seed: []*models.AddressRecord{{
					UnitName:           "AuctionModule",
					ProxyAddress:       common.HexToAddress("0xa2"),
					ImplementationHash: auctionUnit().ImplementationHash(),
					Initialized:        true,
				}},
				units: []*models.DeploymentUnit{royaltyUnit(), auctionUnit()},
				check: func(t *testing.T, err error) {
					var changed *domain.DependencySetChangedError
					require.ErrorAs(t, err, &changed)
					assert.Equal(t, "AuctionModule", changed.Unit)
				},
			},
			{
				name:  "missing implementation",
				units: []*models.DeploymentUnit{{Name: "RoyaltyModule"}},
				check: func(t *testing.T, err error) {
					assert.ErrorIs(t, err, domain.ErrInvalidUnit)
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				registry := records.NewMemoryRepository(tt.seed...)
				executor := newFakeExecutor()
				o := newOrchestrator(registry, registry, executor, nil)

				_, err := o.Run(ctx, tt.units)
				require.Error(t, err)
				tt.check(t, err)
				assert.Empty(t, executor.deploys)
				assert.Empty(t, executor.upgrades)
			})
		}
	})

	t.Run("uninitialized record is marked without a transaction", func(t *testing.T) {
		registry := records.NewMemoryRepository(&models.AddressRecord{
			UnitName:           "RoyaltyModule",
			ProxyAddress:       common.HexToAddress("0xa1"),
			ImplementationHash: royaltyUnit().ImplementationHash(),
		})
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		result, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit()})
		require.NoError(t, err)
		assert.Empty(t, executor.deploys)
		assert.True(t, result.Records["RoyaltyModule"].Initialized)

		stored, err := registry.Get(ctx, "RoyaltyModule")
		require.NoError(t, err)
		assert.True(t, stored.Initialized)
	})

	t.Run("held lock refuses to run", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		unlock, err := registry.Lock(ctx)
		require.NoError(t, err)
		defer func() { _ = unlock() }()

		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)
		_, err = o.Run(ctx, []*models.DeploymentUnit{royaltyUnit()})
		assert.ErrorIs(t, err, domain.ErrRunLocked)
		assert.Empty(t, executor.deploys)
	})

	t.Run("lock is released after a failed run", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		executor.failOn["RoyaltyModule"] = errors.Join(domain.ErrNetwork, errors.New("connection refused"))
		o := newOrchestrator(registry, registry, executor, nil)

		_, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit()})
		assert.ErrorIs(t, err, domain.ErrNetwork)

		unlock, err := registry.Lock(ctx)
		require.NoError(t, err)
		require.NoError(t, unlock())
	})
}

func TestOrchestrateDeploymentProxyAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("one shared admin administers every proxy", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		first, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit(), auctionUnit()})
		require.NoError(t, err)

		require.Len(t, executor.admins, 1)
		assert.Equal(t, models.DefaultSigner, executor.admins[0].Owner)
		admin, err := registry.Get(ctx, models.DefaultProxyAdmin)
		require.NoError(t, err)
		assert.Equal(t, "ProxyAdmin", admin.Contract)
		assert.True(t, admin.Initialized)
		assert.NotContains(t, first.Records, models.DefaultProxyAdmin)

		require.Len(t, executor.deploys, 2)
		for _, req := range executor.deploys {
			assert.Equal(t, admin.ProxyAddress, req.AdminContract, req.Unit)
			assert.Empty(t, req.Admin, req.Unit)
		}
		assert.Equal(t, admin.ProxyAddress, first.Records["AuctionModule"].ProxyAdmin)

		v2 := royaltyUnit()
		v2.Implementation = implementation("RoyaltyModule", 2)
		_, err = o.Run(ctx, []*models.DeploymentUnit{v2, auctionUnit()})
		require.NoError(t, err)
		assert.Len(t, executor.admins, 1)
		require.Len(t, executor.upgrades, 1)
		assert.Equal(t, admin.ProxyAddress, executor.upgrades[0].AdminContract)
		assert.Equal(t, models.DefaultSigner, executor.upgrades[0].Admin)
	})

	t.Run("named admin account bypasses the shared admin", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		royalty := royaltyUnit()
		royalty.ProxyAdmin = "multisig"
		_, err := o.Run(ctx, []*models.DeploymentUnit{royalty})
		require.NoError(t, err)
		assert.Empty(t, executor.admins)
		require.Len(t, executor.deploys, 1)
		assert.Equal(t, "multisig", executor.deploys[0].Admin)
		assert.Equal(t, common.Address{}, executor.deploys[0].AdminContract)

		royalty.Implementation = implementation("RoyaltyModule", 2)
		_, err = o.Run(ctx, []*models.DeploymentUnit{royalty})
		require.NoError(t, err)
		require.Len(t, executor.upgrades, 1)
		assert.Equal(t, "multisig", executor.upgrades[0].Admin)
		assert.Equal(t, common.Address{}, executor.upgrades[0].AdminContract)
	})

	t.Run("upgrade without a recorded admin fails", func(t *testing.T) {
		registry := records.NewMemoryRepository(&models.AddressRecord{
			UnitName:           "RoyaltyModule",
			ProxyAddress:       common.HexToAddress("0xa1"),
			ImplementationHash: common.HexToHash("0xdead"),
			Initialized:        true,
		})
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		_, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit()})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorContains(t, err, models.DefaultProxyAdmin)
		assert.Empty(t, executor.admins)
		assert.Empty(t, executor.upgrades)
	})

	t.Run("failed admin deployment stops the run", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		executor.failOn[models.DefaultProxyAdmin] = fmt.Errorf("%w: out of gas", domain.ErrExecutionReverted)
		o := newOrchestrator(registry, registry, executor, nil)

		_, err := o.Run(ctx, []*models.DeploymentUnit{royaltyUnit()})
		assert.ErrorIs(t, err, domain.ErrExecutionReverted)
		var unitErr *domain.UnitError
		require.ErrorAs(t, err, &unitErr)
		assert.Equal(t, "RoyaltyModule", unitErr.Unit)
		assert.Empty(t, executor.deploys)

		_, err = registry.Get(ctx, models.DefaultProxyAdmin)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrchestrateDeploymentApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("approver sees the executed plan under the lock", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)

		var approved []models.PlanStep
		result, err := o.RunWithApproval(ctx, []*models.DeploymentUnit{auctionUnit(), royaltyUnit()}, func(ctx context.Context, steps []models.PlanStep) error {
			_, lockErr := registry.Lock(ctx)
			assert.ErrorIs(t, lockErr, domain.ErrRunLocked)
			assert.Empty(t, executor.deploys)
			approved = steps
			return nil
		})
		require.NoError(t, err)
		require.Len(t, approved, 2)
		assert.Equal(t, "RoyaltyModule", approved[0].Unit.Name)
		assert.Equal(t, "AuctionModule", approved[1].Unit.Name)
		assert.Len(t, result.Reports, 2)
	})

	t.Run("refusal sends nothing", func(t *testing.T) {
		registry := records.NewMemoryRepository()
		executor := newFakeExecutor()
		o := newOrchestrator(registry, registry, executor, nil)
		refused := errors.New("not today")

		result, err := o.RunWithApproval(ctx, []*models.DeploymentUnit{royaltyUnit()}, func(context.Context, []models.PlanStep) error {
			return refused
		})
		assert.ErrorIs(t, err, refused)
		assert.Nil(t, result)
		assert.Empty(t, executor.admins)
		assert.Empty(t, executor.deploys)

		unlock, err := registry.Lock(ctx)
		require.NoError(t, err)
		require.NoError(t, unlock())
	})
}

func TestOrchestrateDeploymentPlan(t *testing.T) {
	ctx := context.Background()
	registry := records.NewMemoryRepository(&models.AddressRecord{
		UnitName:           "RoyaltyModule",
		ProxyAddress:       common.HexToAddress("0xa1"),
		ImplementationHash: common.HexToHash("0xdead"),
		Initialized:        true,
	})
	executor := newFakeExecutor()
	o := newOrchestrator(registry, registry, executor, nil)

	steps, err := o.Plan(ctx, []*models.DeploymentUnit{auctionUnit(), royaltyUnit()})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "RoyaltyModule", steps[0].Unit.Name)
	assert.Equal(t, models.ActionUpgrade, steps[0].Decision.Action)
	assert.Equal(t, "AuctionModule", steps[1].Unit.Name)
	assert.Equal(t, models.ActionFreshDeploy, steps[1].Decision.Action)
	assert.Empty(t, executor.deploys)
	assert.Empty(t, executor.upgrades)
}
