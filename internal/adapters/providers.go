package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/wire"
	"github.com/trebuchet-org/catapult/internal/adapters/blockchain"
	"github.com/trebuchet-org/catapult/internal/adapters/interactive"
	"github.com/trebuchet-org/catapult/internal/adapters/repository/contracts"
	"github.com/trebuchet-org/catapult/internal/adapters/repository/records"
	"github.com/trebuchet-org/catapult/internal/adapters/unitfile"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// ProvideRegistry opens the address registry of the selected network
func ProvideRegistry(cfg *config.RuntimeConfig) (*records.FileRepository, error) {
	if cfg.Network == nil {
		return nil, fmt.Errorf("no network selected, use --network or set CATAPULT_NETWORK")
	}
	return records.NewFileRepository(cfg.DataDir, cfg.Network.Name)
}

// ProvideKeyring builds the named accounts from [accounts] in catapult.toml
func ProvideKeyring(cfg *config.RuntimeConfig) (*blockchain.Keyring, error) {
	return blockchain.NewKeyring(cfg.Project.Accounts)
}

// ProvideArtifacts provides the compiled contracts of the project
func ProvideArtifacts(cfg *config.RuntimeConfig, log *slog.Logger) *contracts.Repository {
	return contracts.NewRepository(cfg.ArtifactsDir, log)
}

// ProvideUnitLoader provides the loader for the units file. account: arguments
// are resolved through the chain executor.
func ProvideUnitLoader(cfg *config.RuntimeConfig, artifacts usecase.ArtifactStore, executor usecase.ChainExecutor, log *slog.Logger) *unitfile.Loader {
	return unitfile.NewLoader(cfg.UnitsFile, artifacts, executor, log)
}

// ProvideBackend dials the RPC endpoint of the selected network. HTTP
// endpoints do not connect until the first call.
func ProvideBackend(cfg *config.RuntimeConfig) (blockchain.Backend, func(), error) {
	if cfg.Network == nil {
		return nil, nil, fmt.Errorf("no network selected, use --network or set CATAPULT_NETWORK")
	}
	client, err := ethclient.DialContext(context.Background(), cfg.Network.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Network.Name, err)
	}
	return client, client.Close, nil
}

// ProvideProxyArtifacts loads the proxy and ProxyAdmin artifacts named in
// catapult.toml on demand
func ProvideProxyArtifacts(cfg *config.RuntimeConfig, artifacts usecase.ArtifactStore) blockchain.ProxyArtifacts {
	load := func(name, fallback string) blockchain.ProxySource {
		if name == "" {
			name = fallback
		}
		return func(ctx context.Context) (*models.Implementation, error) {
			return artifacts.Load(ctx, name)
		}
	}
	return blockchain.ProxyArtifacts{
		Proxy: load(cfg.Project.ProxyArtifact, config.DefaultProxyArtifact),
		Admin: load(cfg.Project.AdminArtifact, config.DefaultAdminArtifact),
	}
}

// ProvideExecutor provides the go-ethereum chain executor
func ProvideExecutor(
	cfg *config.RuntimeConfig,
	backend blockchain.Backend,
	keyring *blockchain.Keyring,
	proxies blockchain.ProxyArtifacts,
	log *slog.Logger,
) *blockchain.Executor {
	return blockchain.NewExecutor(backend, keyring, proxies, cfg.Timeout, log)
}

// ProvideChecker provides the on-chain record checker used by list --verify
func ProvideChecker(backend blockchain.Backend) *blockchain.Checker {
	return blockchain.NewChecker(backend)
}

// RegistrySet provides the file-backed address registry
var RegistrySet = wire.NewSet(
	ProvideRegistry,
	wire.Bind(new(usecase.AddressRegistry), new(*records.FileRepository)),
	wire.Bind(new(usecase.RunLocker), new(*records.FileRepository)),
)

// ArtifactSet provides artifact and units file loading
var ArtifactSet = wire.NewSet(
	ProvideArtifacts,
	wire.Bind(new(usecase.ArtifactStore), new(*contracts.Repository)),

	ProvideUnitLoader,
	wire.Bind(new(usecase.UnitLoader), new(*unitfile.Loader)),
)

// BlockchainSet provides go-ethereum based implementations
var BlockchainSet = wire.NewSet(
	ProvideKeyring,
	ProvideBackend,
	ProvideProxyArtifacts,
	ProvideExecutor,
	wire.Bind(new(usecase.ChainExecutor), new(*blockchain.Executor)),

	ProvideChecker,
	wire.Bind(new(usecase.ChainChecker), new(*blockchain.Checker)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.RecordSelector), new(*interactive.SelectorAdapter)),
	wire.Bind(new(usecase.Confirmer), new(*interactive.SelectorAdapter)),
)

// NetworkSet provides RPC endpoint probing
var NetworkSet = wire.NewSet(
	blockchain.NewProber,
	wire.Bind(new(usecase.ChainProber), new(*blockchain.Prober)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	RegistrySet,
	ArtifactSet,
	BlockchainSet,
	InteractiveSet,
)
