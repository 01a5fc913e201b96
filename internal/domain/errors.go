package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidUnit is returned when a unit declaration is malformed
	ErrInvalidUnit = errors.New("invalid deployment unit")

	// ErrExecutionReverted is returned when a deploy or upgrade transaction reverted
	ErrExecutionReverted = errors.New("execution reverted")

	// ErrNetwork is returned when the chain could not be reached or did not answer
	ErrNetwork = errors.New("network error")

	// ErrRunLocked is returned when another run holds the registry lock
	ErrRunLocked = errors.New("another deployment run holds the registry lock")
)

// CycleDetectedError is returned when the dependency graph contains a cycle.
// Members are listed in cycle order: each member depends on the next one and
// the last one depends on the first.
type CycleDetectedError struct {
	Members []string
}

func (e *CycleDetectedError) Error() string {
	if len(e.Members) == 0 {
		return "circular dependency detected"
	}
	path := append(append([]string{}, e.Members...), e.Members[0])
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(path, " -> "))
}

// UnknownDependencyError is returned when a unit depends on a name that is not declared
type UnknownDependencyError struct {
	Unit       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("unit '%s' depends on unknown unit '%s'", e.Unit, e.Dependency)
}

// DuplicateUnitError is returned when two units share a name
type DuplicateUnitError struct {
	Unit string
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("unit '%s' is declared more than once", e.Unit)
}

// SelfDependencyError is returned when a unit lists itself as a dependency
type SelfDependencyError struct {
	Unit string
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("unit '%s' cannot depend on itself", e.Unit)
}

// DependencyNotReadyError signals that a unit was reached before one of its
// dependencies was deployed and initialized. The resolver order makes this
// unreachable, so seeing it means the ordering logic is broken.
type DependencyNotReadyError struct {
	Unit       string
	Dependency string
}

func (e *DependencyNotReadyError) Error() string {
	return fmt.Sprintf("dependency '%s' of unit '%s' is not deployed and initialized", e.Dependency, e.Unit)
}

// DependencySetChangedError is returned when a unit already recorded in the
// registry now declares a different set of dependencies. Changing the graph of
// a live deployment requires a fresh registry.
type DependencySetChangedError struct {
	Unit     string
	Recorded []string
	Declared []string
}

func (e *DependencySetChangedError) Error() string {
	return fmt.Sprintf("unit '%s' was deployed with dependencies %v but now declares %v; use a fresh registry to redeploy",
		e.Unit, e.Recorded, e.Declared)
}

// UnknownUnitError is returned when a registry operation targets a unit without a record
type UnknownUnitError struct {
	Unit string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("no registry record for unit '%s'", e.Unit)
}

func (e *UnknownUnitError) Is(target error) bool {
	return target == ErrNotFound
}

// UnitError attaches the failing unit and the attempted action to an error
type UnitError struct {
	Unit   string
	Action string
	Err    error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}
