package progress

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// DeployProgress renders orchestrator events as they happen
type DeployProgress struct {
	renderer *render.DeployRenderer
	spinner  *SpinnerProgressReporter
}

// NewDeployProgress creates a deploy progress reporter
func NewDeployProgress(renderer *render.DeployRenderer) *DeployProgress {
	return &DeployProgress{
		renderer: renderer,
		spinner:  NewSpinnerProgressReporter(renderer.GetWriter()),
	}
}

// OnProgress handles progress events for deploy runs
func (p *DeployProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case usecase.StagePlanCreated:
		// the plan was already shown before confirmation
		p.spinner.Stop()

	case usecase.StageUnitStarting:
		p.spinner.Stop()
		if step, ok := event.Metadata.(models.PlanStep); ok {
			p.renderer.RenderUnitStarting(event.Current, event.Total, step)
		}
		if event.Spinner {
			p.spinner.OnProgress(ctx, usecase.ProgressEvent{
				Spinner: true,
				Message: fmt.Sprintf("waiting for %s transactions", event.Message),
			})
		}

	case usecase.StageUnitCompleted, usecase.StageUnitFailed:
		p.spinner.Stop()
		if report, ok := event.Metadata.(models.UnitReport); ok {
			p.renderer.RenderUnitReport(report)
		}

	case usecase.StageRunCompleted:
		p.spinner.Stop()

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

// Info forwards info messages to the spinner
func (p *DeployProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *DeployProgress) Error(message string) {
	p.spinner.Error(message)
}

var _ usecase.ProgressSink = (*DeployProgress)(nil)
