package models

import (
	"fmt"
	"slices"

	"github.com/trebuchet-org/catapult/internal/domain"
)

// Action is what the orchestrator does with a unit
type Action string

const (
	ActionReuse       Action = "reuse"
	ActionUpgrade     Action = "upgrade"
	ActionFreshDeploy Action = "deploy"
)

// Decision is the outcome of comparing a unit's declaration with its record
type Decision struct {
	Action Action
	// MarkInitialized is set when an existing record was never marked
	// initialized. Proxy creation runs the initializer, so such a record only
	// needs the flag committed.
	MarkInitialized bool
}

// Decide chooses what to do with unit given its existing record, which may be nil.
// A record whose dependency set differs from the declaration is a configuration
// error.
func Decide(unit *DeploymentUnit, record *AddressRecord) (Decision, error) {
	if record == nil {
		return Decision{Action: ActionFreshDeploy}, nil
	}

	if !SameDependencies(record.Dependencies, unit.Dependencies) {
		return Decision{}, &domain.DependencySetChangedError{
			Unit:     unit.Name,
			Recorded: slices.Clone(record.Dependencies),
			Declared: slices.Clone(unit.Dependencies),
		}
	}

	d := Decision{Action: ActionReuse, MarkInitialized: !record.Initialized}
	if record.ImplementationHash != unit.ImplementationHash() {
		d.Action = ActionUpgrade
	}
	return d, nil
}

// SameDependencies compares two dependency lists ignoring order
func SameDependencies(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

func (d Decision) String() string {
	if d.MarkInitialized {
		return fmt.Sprintf("%s (mark initialized)", d.Action)
	}
	return string(d.Action)
}
