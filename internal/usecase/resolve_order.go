package usecase

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// ResolveOrder returns units ordered so that every unit comes after all of its
// dependencies. Among units that are ready at the same time, the one declared
// first comes first, so the output is deterministic for a given input.
func ResolveOrder(units []*models.DeploymentUnit) ([]*models.DeploymentUnit, error) {
	index, err := indexUnits(units)
	if err != nil {
		return nil, err
	}

	// in-degree counts distinct unprocessed dependencies
	inDegree := make([]int, len(units))
	dependents := make([][]int, len(units))
	for i, unit := range units {
		for _, dep := range lo.Uniq(unit.Dependencies) {
			j := index[dep]
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// ready holds declaration indexes and is kept sorted
	var ready []int
	for i, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]*models.DeploymentUnit, 0, len(units))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		result = append(result, units[current])

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				pos, _ := slices.BinarySearch(ready, dependent)
				ready = slices.Insert(ready, pos, dependent)
			}
		}
	}

	if len(result) != len(units) {
		return nil, &domain.CycleDetectedError{Members: findCycle(units, index, inDegree)}
	}
	return result, nil
}

// indexUnits validates unit declarations and maps names to declaration index
func indexUnits(units []*models.DeploymentUnit) (map[string]int, error) {
	index := make(map[string]int, len(units))
	for i, unit := range units {
		if unit == nil || unit.Name == "" {
			return nil, fmt.Errorf("%w: unit #%d has no name", domain.ErrInvalidUnit, i+1)
		}
		if _, exists := index[unit.Name]; exists {
			return nil, &domain.DuplicateUnitError{Unit: unit.Name}
		}
		index[unit.Name] = i
	}

	for _, unit := range units {
		for _, dep := range unit.Dependencies {
			if dep == unit.Name {
				return nil, &domain.SelfDependencyError{Unit: unit.Name}
			}
			if _, exists := index[dep]; !exists {
				return nil, &domain.UnknownDependencyError{Unit: unit.Name, Dependency: dep}
			}
		}
	}
	return index, nil
}

// findCycle walks unprocessed dependency edges from the first stuck unit until
// a unit repeats. Every stuck unit has at least one stuck dependency, so the
// walk always closes a loop.
func findCycle(units []*models.DeploymentUnit, index map[string]int, inDegree []int) []string {
	start := slices.IndexFunc(inDegree, func(d int) bool { return d > 0 })
	if start < 0 {
		return nil
	}

	seenAt := make(map[int]int)
	var path []int
	for current := start; ; {
		if pos, seen := seenAt[current]; seen {
			return lo.Map(path[pos:], func(i int, _ int) string { return units[i].Name })
		}
		seenAt[current] = len(path)
		path = append(path, current)

		next := -1
		for _, dep := range units[current].Dependencies {
			if j := index[dep]; inDegree[j] > 0 {
				next = j
				break
			}
		}
		if next < 0 {
			// unreachable while in-degrees are consistent
			return lo.Map(path, func(i int, _ int) string { return units[i].Name })
		}
		current = next
	}
}

// SelectByTags returns the units carrying any of tags together with all of
// their transitive dependencies, in declaration order. No tags selects every unit.
func SelectByTags(units []*models.DeploymentUnit, tags []string) ([]*models.DeploymentUnit, error) {
	if len(tags) == 0 {
		return units, nil
	}
	index, err := indexUnits(units)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if selected[name] {
			return
		}
		selected[name] = true
		for _, dep := range units[index[name]].Dependencies {
			visit(dep)
		}
	}

	matched := false
	for _, unit := range units {
		if lo.SomeBy(tags, unit.HasTag) {
			matched = true
			visit(unit.Name)
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: no unit carries tags %v", domain.ErrNotFound, tags)
	}

	return lo.Filter(units, func(u *models.DeploymentUnit, _ int) bool {
		return selected[u.Name]
	}), nil
}
