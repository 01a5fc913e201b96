package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// ErrDeployDeclined is returned when the user does not confirm a run
var ErrDeployDeclined = errors.New("deployment declined")

// DeployParams selects what a deploy run covers
type DeployParams struct {
	// Tags limits the run to tagged units and their dependencies
	Tags []string
	// DryRun stops after planning
	DryRun bool
	// Yes skips the confirmation prompt
	Yes bool
	// OnPlan, when set, receives the plan before confirmation is asked. For
	// real runs the registry is already locked, so it is the plan executed.
	OnPlan func(steps []models.PlanStep)
}

// DeployResult is the outcome of DeployUnits.Run. Run is nil for dry runs.
type DeployResult struct {
	Network string
	Steps   []models.PlanStep
	Run     *RunResult
	DryRun  bool
}

// Pending returns the steps that send transactions
func (r *DeployResult) Pending() []models.PlanStep {
	return lo.Filter(r.Steps, func(s models.PlanStep, _ int) bool {
		return s.Decision.Action != models.ActionReuse
	})
}

// DeployUnits loads the declared units and hands them to the orchestrator
type DeployUnits struct {
	config       *config.RuntimeConfig
	loader       UnitLoader
	orchestrator *OrchestrateDeployment
	confirmer    Confirmer
	log          *slog.Logger
}

// NewDeployUnits creates a new DeployUnits use case
func NewDeployUnits(
	cfg *config.RuntimeConfig,
	loader UnitLoader,
	orchestrator *OrchestrateDeployment,
	confirmer Confirmer,
	log *slog.Logger,
) *DeployUnits {
	return &DeployUnits{
		config:       cfg,
		loader:       loader,
		orchestrator: orchestrator,
		confirmer:    confirmer,
		log:          log,
	}
}

// Plan loads and orders the selected units and decides the action for each
func (uc *DeployUnits) Plan(ctx context.Context, tags []string) ([]*models.DeploymentUnit, []models.PlanStep, error) {
	units, err := uc.loader.LoadUnits(ctx)
	if err != nil {
		return nil, nil, err
	}
	selected, err := SelectByTags(units, tags)
	if err != nil {
		return nil, nil, err
	}
	steps, err := uc.orchestrator.Plan(ctx, selected)
	if err != nil {
		return nil, nil, err
	}
	return selected, steps, nil
}

// Run plans, asks for confirmation when transactions will be sent and runs
// the orchestrator. Planning and confirmation happen under the run lock.
func (uc *DeployUnits) Run(ctx context.Context, params DeployParams) (*DeployResult, error) {
	units, err := uc.loader.LoadUnits(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := SelectByTags(units, params.Tags)
	if err != nil {
		return nil, err
	}

	result := &DeployResult{DryRun: params.DryRun}
	if uc.config.Network != nil {
		result.Network = uc.config.Network.Name
	}

	if params.DryRun {
		steps, err := uc.orchestrator.Plan(ctx, selected)
		if err != nil {
			return nil, err
		}
		result.Steps = steps
		if params.OnPlan != nil {
			params.OnPlan(steps)
		}
		return result, nil
	}

	run, err := uc.orchestrator.RunWithApproval(ctx, selected, func(ctx context.Context, steps []models.PlanStep) error {
		result.Steps = steps
		if params.OnPlan != nil {
			params.OnPlan(steps)
		}
		return uc.confirm(ctx, params, result)
	})
	result.Run = run
	return result, err
}

func (uc *DeployUnits) confirm(ctx context.Context, params DeployParams, result *DeployResult) error {
	pending := result.Pending()
	uc.log.Debug("plan ready", "units", len(result.Steps), "pending", len(pending))
	if len(pending) == 0 || params.Yes || uc.config.NonInteractive {
		return nil
	}

	prompt := fmt.Sprintf("Send transactions for %d unit(s) on %s", len(pending), lo.CoalesceOrEmpty(result.Network, "the configured network"))
	ok, err := uc.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeployDeclined
	}
	return nil
}
