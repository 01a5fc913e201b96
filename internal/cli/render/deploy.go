package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// DeployRenderer renders plans, per-unit progress and run summaries
type DeployRenderer struct {
	out io.Writer
}

// NewDeployRenderer creates a new deploy renderer
func NewDeployRenderer(out io.Writer) *DeployRenderer {
	return &DeployRenderer{out: out}
}

// GetWriter returns the io.Writer used by this renderer
func (r *DeployRenderer) GetWriter() io.Writer {
	return r.out
}

// RenderPlan displays the ordered decision list
func (r *DeployRenderer) RenderPlan(network string, steps []models.PlanStep) {
	if network != "" {
		fmt.Fprintf(r.out, "\n🎯 Network: %s\n", unitStyle.Sprint(network))
	}
	headerStyle.Fprintf(r.out, "📋 Deployment plan (%d units):\n", len(steps))
	fmt.Fprintln(r.out, separator)

	if len(steps) == 0 {
		fmt.Fprintln(r.out, faintStyle.Sprint("nothing selected"))
		return
	}

	for i, step := range steps {
		fmt.Fprintf(r.out, "%d. %s → %s", i+1, unitStyle.Sprint(step.Unit.Name), actionLabel(step.Decision))
		if step.Unit.Contract != step.Unit.Name {
			faintStyle.Fprintf(r.out, " [%s]", step.Unit.Contract)
		}
		if len(step.Unit.Dependencies) > 0 {
			faintStyle.Fprintf(r.out, " (depends on: %s)", strings.Join(step.Unit.Dependencies, ", "))
		}
		fmt.Fprintln(r.out)

		if step.Record != nil {
			fmt.Fprintf(r.out, "   proxy %s\n", formatAddress(step.Record.ProxyAddress))
		}
		if step.Decision.Action == models.ActionUpgrade {
			faintStyle.Fprintf(r.out, "   implementation %s → %s\n",
				shortHash(step.Record.ImplementationHash.Hex()), shortHash(step.Unit.ImplementationHash().Hex()))
		}
		if step.Decision.Action == models.ActionFreshDeploy && step.Unit.InitMethod != "" {
			args := lo.Map(step.Unit.InitArgs, func(a models.InitArg, _ int) string { return a.String() })
			faintStyle.Fprintf(r.out, "   %s(%s)\n", step.Unit.InitMethod, strings.Join(args, ", "))
		}
	}
	fmt.Fprintln(r.out)
}

// RenderUnitStarting prints the step header
func (r *DeployRenderer) RenderUnitStarting(current, total int, step models.PlanStep) {
	fmt.Fprintf(r.out, "[%d/%d] %s %s\n", current, total, unitStyle.Sprint(step.Unit.Name), actionLabel(step.Decision))
}

// RenderUnitReport prints the result of one unit
func (r *DeployRenderer) RenderUnitReport(report models.UnitReport) {
	if report.Outcome == models.OutcomeFailed {
		fmt.Fprintf(r.out, "  %s %s\n", outcomeLabel(report.Outcome), failureStyle.Sprint(report.Err))
		return
	}
	fmt.Fprintf(r.out, "  %s proxy %s", outcomeLabel(report.Outcome), formatAddress(report.ProxyAddress))
	if report.Outcome != models.OutcomeReused {
		faintStyle.Fprintf(r.out, " (block %d, %s)", report.BlockNumber, report.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(r.out)
}

// RenderSummary prints the final state of a deploy command
func (r *DeployRenderer) RenderSummary(result *usecase.DeployResult, err error) {
	if result == nil {
		return
	}
	if result.DryRun {
		fmt.Fprintln(r.out, pendingStyle.Sprintf("Dry run: %d of %d units would send transactions", len(result.Pending()), len(result.Steps)))
		return
	}
	if errors.Is(err, usecase.ErrDeployDeclined) {
		fmt.Fprintln(r.out, FormatWarning("Deployment cancelled, nothing was sent"))
		return
	}
	if result.Run == nil {
		return
	}

	counts := lo.CountValuesBy(result.Run.Reports, func(rep models.UnitReport) models.Outcome { return rep.Outcome })
	fmt.Fprintln(r.out, separator)
	headerStyle.Fprintln(r.out, "Summary")
	for _, o := range []models.Outcome{models.OutcomeDeployed, models.OutcomeUpgraded, models.OutcomeReused, models.OutcomeFailed} {
		if counts[o] > 0 {
			fmt.Fprintf(r.out, "  %-10s %d\n", outcomeLabel(o), counts[o])
		}
	}

	if failed := result.Run.Failed(); failed != nil {
		skipped := len(result.Steps) - len(result.Run.Reports)
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%s failed", failed.Unit)))
		var unitErr *domain.UnitError
		if errors.As(failed.Err, &unitErr) {
			faintStyle.Fprintf(r.out, "  %s\n", unitErr.Err)
		}
		if skipped > 0 {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%d unit(s) not attempted", skipped)))
		}
		return
	}
	if err != nil {
		fmt.Fprintln(r.out, FormatError(err.Error()))
		return
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%d units in their declared state", len(result.Run.Reports))))
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:10] + "…"
}
