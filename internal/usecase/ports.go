package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// AddressRegistry persists the address record of every deployed unit
type AddressRegistry interface {
	// Get returns the record for unit or domain.ErrNotFound
	Get(ctx context.Context, unit string) (*models.AddressRecord, error)
	// Put upserts a record. It never resets Initialized from true to false.
	Put(ctx context.Context, record *models.AddressRecord) error
	// MarkInitialized flips Initialized to true, or returns domain.UnknownUnitError
	MarkInitialized(ctx context.Context, unit string) error
	// List returns every record sorted by unit name
	List(ctx context.Context) ([]*models.AddressRecord, error)
}

// ChainExecutor sends deployment transactions and waits for their receipts.
// Failures wrap domain.ErrExecutionReverted or domain.ErrNetwork.
type ChainExecutor interface {
	DeployProxyAdmin(ctx context.Context, req ProxyAdminRequest) (*ProxyAdminReceipt, error)
	DeployBehindProxy(ctx context.Context, req DeployRequest) (*DeployReceipt, error)
	UpgradeImplementation(ctx context.Context, req UpgradeRequest) (*UpgradeReceipt, error)
	// ResolveAccount returns the address of a named account
	ResolveAccount(ctx context.Context, role string) (common.Address, error)
}

// ProxyAdminRequest asks for the ProxyAdmin contract shared by the proxies of
// a network. Owner is the account allowed to upgrade through it.
type ProxyAdminRequest struct {
	Owner string
}

// ProxyAdminReceipt is the result of DeployProxyAdmin
type ProxyAdminReceipt struct {
	Address     common.Address
	Contract    string
	Hash        common.Hash
	BlockNumber uint64
}

// DeployRequest asks for a new implementation behind a new proxy whose
// initializer runs in the proxy constructor. The proxy is administered by
// AdminContract when set, otherwise by the Admin account.
type DeployRequest struct {
	Unit           string
	Implementation *models.Implementation
	From           string
	Admin          string
	AdminContract  common.Address
	InitMethod     string
	InitArgs       []any
}

// DeployReceipt is the result of DeployBehindProxy
type DeployReceipt struct {
	ProxyAddress          common.Address
	ImplementationAddress common.Address
	ImplementationHash    common.Hash
	ProxyAdmin            common.Address
	BlockNumber           uint64
}

// UpgradeRequest asks for a new implementation to be deployed and the proxy
// pointed at it. The initializer does not run again. Admin signs the upgrade:
// through AdminContract when set, otherwise directly against the proxy.
type UpgradeRequest struct {
	Unit           string
	ProxyAddress   common.Address
	Implementation *models.Implementation
	From           string
	Admin          string
	AdminContract  common.Address
}

// UpgradeReceipt is the result of UpgradeImplementation
type UpgradeReceipt struct {
	ImplementationAddress common.Address
	ImplementationHash    common.Hash
	BlockNumber           uint64
}

// ChainChecker verifies that recorded contracts still exist on chain
type ChainChecker interface {
	CheckRecord(ctx context.Context, record *models.AddressRecord) (ok bool, reason string, err error)
}

// ChainProber reads the chain ID behind an RPC endpoint
type ChainProber interface {
	ChainID(ctx context.Context, rpcURL string) (uint64, error)
}

// RunLocker guards a registry against concurrent runs
type RunLocker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// UnitLoader reads the declared deployment units
type UnitLoader interface {
	LoadUnits(ctx context.Context) ([]*models.DeploymentUnit, error)
}

// ArtifactStore loads compiled contracts
type ArtifactStore interface {
	Load(ctx context.Context, name string) (*models.Implementation, error)
}

// RecordSelector handles interactive selection of registry records
type RecordSelector interface {
	SelectRecord(ctx context.Context, records []*models.AddressRecord, prompt string) (*models.AddressRecord, error)
}

// Confirmer asks the user to approve an action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
