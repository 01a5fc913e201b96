package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// Progress stages emitted by OrchestrateDeployment
const (
	StagePlanCreated   = "plan_created"
	StageUnitStarting  = "unit_starting"
	StageUnitCompleted = "unit_completed"
	StageUnitFailed    = "unit_failed"
	StageRunCompleted  = "run_completed"
)

// RunResult is the state of a run when it finished or stopped
type RunResult struct {
	Records map[string]*models.AddressRecord
	Reports []models.UnitReport
}

// Failed returns the report of the unit that stopped the run, if any
func (r *RunResult) Failed() *models.UnitReport {
	for i := range r.Reports {
		if r.Reports[i].Outcome == models.OutcomeFailed {
			return &r.Reports[i]
		}
	}
	return nil
}

// Approver sees the plan once the registry is locked. A non-nil error stops
// the run before anything is sent.
type Approver func(ctx context.Context, steps []models.PlanStep) error

// OrchestrateDeployment deploys, reuses or upgrades units in dependency order
type OrchestrateDeployment struct {
	registry AddressRegistry
	executor ChainExecutor
	locker   RunLocker
	progress ProgressSink
	log      *slog.Logger
	now      func() time.Time
}

// NewOrchestrateDeployment creates a new OrchestrateDeployment use case
func NewOrchestrateDeployment(
	registry AddressRegistry,
	executor ChainExecutor,
	locker RunLocker,
	progress ProgressSink,
	log *slog.Logger,
) *OrchestrateDeployment {
	if progress == nil {
		progress = NopProgress{}
	}
	return &OrchestrateDeployment{
		registry: registry,
		executor: executor,
		locker:   locker,
		progress: progress,
		log:      log.With("component", "orchestrator"),
		now:      time.Now,
	}
}

// Plan orders units and decides what each one needs without sending anything.
// Every configuration problem found is reported together.
func (o *OrchestrateDeployment) Plan(ctx context.Context, units []*models.DeploymentUnit) ([]models.PlanStep, error) {
	ordered, err := ResolveOrder(units)
	if err != nil {
		return nil, err
	}

	var errs *multierror.Error
	steps := make([]models.PlanStep, 0, len(ordered))
	for _, unit := range ordered {
		record, err := o.registry.Get(ctx, unit.Name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to read registry record for %s: %w", unit.Name, err)
		}
		if errors.Is(err, domain.ErrNotFound) {
			record = nil
		}

		if unit.Implementation == nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: unit '%s' has no implementation artifact", domain.ErrInvalidUnit, unit.Name))
			continue
		}

		decision, err := models.Decide(unit, record)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		steps = append(steps, models.PlanStep{Unit: unit, Record: record, Decision: decision})
	}

	if err := errs.ErrorOrNil(); err != nil {
		// a single problem is returned as-is so callers can match its type
		if len(errs.Errors) == 1 {
			return nil, errs.Errors[0]
		}
		return nil, err
	}
	return steps, nil
}

// Run brings every unit to its declared state. Units run one at a time; the
// first failure stops the run and leaves no record for the failing unit.
// Cancelling ctx stops the run before the next unit starts but never
// interrupts a transaction already in flight.
func (o *OrchestrateDeployment) Run(ctx context.Context, units []*models.DeploymentUnit) (*RunResult, error) {
	return o.RunWithApproval(ctx, units, nil)
}

// RunWithApproval is Run with the plan handed to approve before the first
// unit. The plan approved is the plan executed.
func (o *OrchestrateDeployment) RunWithApproval(ctx context.Context, units []*models.DeploymentUnit, approve Approver) (*RunResult, error) {
	unlock, err := o.locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			o.log.Warn("failed to release registry lock", "error", err)
		}
	}()

	steps, err := o.Plan(ctx, units)
	if err != nil {
		return nil, err
	}
	if approve != nil {
		if err := approve(ctx, steps); err != nil {
			return nil, err
		}
	}

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StagePlanCreated,
		Total:    len(steps),
		Metadata: steps,
	})

	result := &RunResult{Records: make(map[string]*models.AddressRecord, len(steps))}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			o.log.Warn("run cancelled", "next", step.Unit.Name, "completed", i)
			return result, fmt.Errorf("run cancelled before %s: %w", step.Unit.Name, err)
		}

		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageUnitStarting,
			Current:  i + 1,
			Total:    len(steps),
			Message:  step.Unit.Name,
			Spinner:  step.Decision.Action != models.ActionReuse,
			Metadata: step,
		})

		start := o.now()
		record, report, err := o.executeStep(ctx, step)
		report.Duration = o.now().Sub(start)
		if err != nil {
			report.Outcome = models.OutcomeFailed
			report.Err = err
			result.Reports = append(result.Reports, report)
			o.log.Error("unit failed", "unit", step.Unit.Name, "action", step.Decision.Action, "error", err)
			o.progress.OnProgress(ctx, ProgressEvent{
				Stage:    StageUnitFailed,
				Current:  i + 1,
				Total:    len(steps),
				Message:  step.Unit.Name,
				Metadata: report,
			})
			return result, err
		}

		result.Records[step.Unit.Name] = record
		result.Reports = append(result.Reports, report)
		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageUnitCompleted,
			Current:  i + 1,
			Total:    len(steps),
			Message:  step.Unit.Name,
			Metadata: report,
		})
	}

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageRunCompleted,
		Total:    len(steps),
		Metadata: result,
	})
	return result, nil
}

func (o *OrchestrateDeployment) executeStep(ctx context.Context, step models.PlanStep) (*models.AddressRecord, models.UnitReport, error) {
	report := models.UnitReport{Unit: step.Unit.Name, Decision: step.Decision}

	var (
		record *models.AddressRecord
		err    error
	)
	switch step.Decision.Action {
	case models.ActionReuse:
		record, err = o.reuse(ctx, step)
		report.Outcome = models.OutcomeReused
	case models.ActionUpgrade:
		record, err = o.upgrade(ctx, step)
		report.Outcome = models.OutcomeUpgraded
	case models.ActionFreshDeploy:
		record, err = o.deploy(ctx, step)
		report.Outcome = models.OutcomeDeployed
	default:
		err = fmt.Errorf("unknown action %q", step.Decision.Action)
	}
	if err != nil {
		return nil, report, err
	}

	report.ProxyAddress = record.ProxyAddress
	report.ImplementationAddress = record.ImplementationAddress
	report.BlockNumber = record.DeployedAtBlock
	return record, report, nil
}

func (o *OrchestrateDeployment) reuse(ctx context.Context, step models.PlanStep) (*models.AddressRecord, error) {
	record := step.Record.Clone()
	o.log.Info("reusing deployment", "unit", step.Unit.Name, "proxy", record.ProxyAddress.Hex())

	if step.Decision.MarkInitialized {
		if err := o.registry.MarkInitialized(ctx, step.Unit.Name); err != nil {
			return nil, &domain.UnitError{Unit: step.Unit.Name, Action: "mark initialized", Err: err}
		}
		record.Initialized = true
	}
	return record, nil
}

func (o *OrchestrateDeployment) upgrade(ctx context.Context, step models.PlanStep) (*models.AddressRecord, error) {
	unit := step.Unit
	o.log.Info("upgrading implementation",
		"unit", unit.Name,
		"proxy", step.Record.ProxyAddress.Hex(),
		"from", step.Record.ImplementationHash.Hex(),
		"to", unit.ImplementationHash().Hex(),
	)

	req := UpgradeRequest{
		Unit:           unit.Name,
		ProxyAddress:   step.Record.ProxyAddress,
		Implementation: unit.Implementation,
		From:           unit.Signer(),
		Admin:          unit.ProxyAdmin,
	}
	if unit.UsesSharedAdmin() {
		admin, err := o.proxyAdmin(ctx, unit, false)
		if err != nil {
			return nil, err
		}
		req.Admin = unit.Signer()
		req.AdminContract = admin
	}

	receipt, err := o.executor.UpgradeImplementation(context.WithoutCancel(ctx), req)
	if err != nil {
		return nil, &domain.UnitError{Unit: unit.Name, Action: "upgrade", Err: err}
	}

	record := step.Record.Clone()
	record.ImplementationAddress = receipt.ImplementationAddress
	record.ImplementationHash = receipt.ImplementationHash
	if record.ImplementationHash == (common.Hash{}) {
		record.ImplementationHash = unit.ImplementationHash()
	}
	record.DeployedAtBlock = receipt.BlockNumber
	record.UpdatedAt = o.now().UTC()

	if err := o.commit(ctx, unit.Name, record, step.Decision.MarkInitialized); err != nil {
		return nil, err
	}
	o.log.Info("upgraded", "unit", unit.Name, "implementation", record.ImplementationAddress.Hex(), "block", record.DeployedAtBlock)
	return record, nil
}

func (o *OrchestrateDeployment) deploy(ctx context.Context, step models.PlanStep) (*models.AddressRecord, error) {
	unit := step.Unit
	o.log.Info(fmt.Sprintf("Running %s deploy script", unit.Name))

	deps := make(map[string]common.Address, len(unit.Dependencies))
	for _, dep := range unit.Dependencies {
		rec, err := o.registry.Get(ctx, dep)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !rec.Initialized) {
			return nil, &domain.DependencyNotReadyError{Unit: unit.Name, Dependency: dep}
		}
		if err != nil {
			return nil, &domain.UnitError{Unit: unit.Name, Action: "resolve dependencies of", Err: err}
		}
		deps[dep] = rec.ProxyAddress
	}

	var args []any
	if unit.BuildInitArgs != nil {
		var err error
		args, err = unit.BuildInitArgs(deps)
		if err != nil {
			return nil, &domain.UnitError{Unit: unit.Name, Action: "build initializer arguments for", Err: err}
		}
	}

	req := DeployRequest{
		Unit:           unit.Name,
		Implementation: unit.Implementation,
		From:           unit.Signer(),
		Admin:          unit.ProxyAdmin,
		InitMethod:     unit.InitMethod,
		InitArgs:       args,
	}
	if unit.UsesSharedAdmin() {
		admin, err := o.proxyAdmin(ctx, unit, true)
		if err != nil {
			return nil, err
		}
		req.AdminContract = admin
	}

	receipt, err := o.executor.DeployBehindProxy(context.WithoutCancel(ctx), req)
	if err != nil {
		return nil, &domain.UnitError{Unit: unit.Name, Action: "deploy", Err: err}
	}

	now := o.now().UTC()
	record := &models.AddressRecord{
		UnitName:              unit.Name,
		Contract:              unit.Contract,
		ProxyAddress:          receipt.ProxyAddress,
		ImplementationAddress: receipt.ImplementationAddress,
		ImplementationHash:    receipt.ImplementationHash,
		ProxyAdmin:            receipt.ProxyAdmin,
		DeployedAtBlock:       receipt.BlockNumber,
		Dependencies:          append([]string{}, unit.Dependencies...),
		InitArgs:              RenderArgs(args),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if record.ImplementationHash == (common.Hash{}) {
		record.ImplementationHash = unit.ImplementationHash()
	}

	if err := o.commit(ctx, unit.Name, record, true); err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("%s deployed at %s", unit.Name, record.ProxyAddress.Hex()), "block", record.DeployedAtBlock)
	return record, nil
}

// proxyAdmin returns the address of the network's shared ProxyAdmin. When
// none is recorded yet and create is set, it is deployed with the unit's
// signer as owner and recorded under models.DefaultProxyAdmin.
func (o *OrchestrateDeployment) proxyAdmin(ctx context.Context, unit *models.DeploymentUnit, create bool) (common.Address, error) {
	record, err := o.registry.Get(ctx, models.DefaultProxyAdmin)
	if err == nil {
		return record.ProxyAddress, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return common.Address{}, &domain.UnitError{Unit: unit.Name, Action: "resolve proxy admin of", Err: err}
	}
	if !create {
		return common.Address{}, &domain.UnitError{
			Unit:   unit.Name,
			Action: "upgrade",
			Err:    fmt.Errorf("%w: no %s record on this network", domain.ErrNotFound, models.DefaultProxyAdmin),
		}
	}

	o.log.Info("deploying shared proxy admin", "owner", unit.Signer())
	receipt, err := o.executor.DeployProxyAdmin(context.WithoutCancel(ctx), ProxyAdminRequest{Owner: unit.Signer()})
	if err != nil {
		return common.Address{}, &domain.UnitError{Unit: unit.Name, Action: "deploy proxy admin for", Err: err}
	}

	now := o.now().UTC()
	record = &models.AddressRecord{
		UnitName:              models.DefaultProxyAdmin,
		Contract:              receipt.Contract,
		ProxyAddress:          receipt.Address,
		ImplementationAddress: receipt.Address,
		ImplementationHash:    receipt.Hash,
		DeployedAtBlock:       receipt.BlockNumber,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := o.commit(ctx, models.DefaultProxyAdmin, record, true); err != nil {
		return common.Address{}, err
	}
	o.log.Info(fmt.Sprintf("%s deployed at %s", models.DefaultProxyAdmin, receipt.Address.Hex()), "block", receipt.BlockNumber)
	return receipt.Address, nil
}

// commit persists a record after its transaction succeeded. A failure here
// leaves a live contract without a record, so the addresses are logged for
// manual recovery.
func (o *OrchestrateDeployment) commit(ctx context.Context, unit string, record *models.AddressRecord, markInitialized bool) error {
	ctx = context.WithoutCancel(ctx)
	if err := o.registry.Put(ctx, record); err != nil {
		o.log.Error("transaction succeeded but record could not be saved",
			"unit", unit, "proxy", record.ProxyAddress.Hex(), "implementation", record.ImplementationAddress.Hex(), "error", err)
		return &domain.UnitError{Unit: unit, Action: "record", Err: err}
	}
	if markInitialized {
		if err := o.registry.MarkInitialized(ctx, unit); err != nil {
			return &domain.UnitError{Unit: unit, Action: "mark initialized", Err: err}
		}
		record.Initialized = true
	}
	return nil
}

// RenderArgs renders initializer arguments for the registry audit trail
func RenderArgs(args []any) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case common.Address:
			out[i] = v.Hex()
		case common.Hash:
			out[i] = v.Hex()
		case *big.Int:
			out[i] = v.String()
		case []byte:
			out[i] = hexutil.Encode(v)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
