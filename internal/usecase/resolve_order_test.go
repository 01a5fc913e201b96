package usecase_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

func unit(name string, deps ...string) *models.DeploymentUnit {
	return &models.DeploymentUnit{Name: name, Contract: name, Dependencies: deps, Tags: []string{name}}
}

func names(units []*models.DeploymentUnit) []string {
	return lo.Map(units, func(u *models.DeploymentUnit, _ int) string { return u.Name })
}

func TestResolveOrder(t *testing.T) {
	tests := []struct {
		name     string
		units    []*models.DeploymentUnit
		expected []string
	}{
		{
			name:     "empty input",
			units:    nil,
			expected: []string{},
		},
		{
			name:     "independent units keep declaration order",
			units:    []*models.DeploymentUnit{unit("C"), unit("A"), unit("B")},
			expected: []string{"C", "A", "B"},
		},
		{
			name:     "dependency declared after dependent",
			units:    []*models.DeploymentUnit{unit("AuctionModule", "RoyaltyModule"), unit("RoyaltyModule")},
			expected: []string{"RoyaltyModule", "AuctionModule"},
		},
		{
			name: "vibe units",
			units: []*models.DeploymentUnit{
				unit("VibeFixedSwap", "VibeRoyalty"),
				unit("VibeNFTFixedSwap", "VibeRoyalty"),
				unit("VibeRoyalty"),
				unit("VibeNFTEnglishAuction", "VibeRoyalty"),
				unit("VibeDutchAuction", "VibeRoyalty"),
			},
			expected: []string{"VibeRoyalty", "VibeFixedSwap", "VibeNFTFixedSwap", "VibeNFTEnglishAuction", "VibeDutchAuction"},
		},
		{
			name: "diamond",
			units: []*models.DeploymentUnit{
				unit("D", "B", "C"),
				unit("C", "A"),
				unit("B", "A"),
				unit("A"),
			},
			expected: []string{"A", "C", "B", "D"},
		},
		{
			name: "ready unit declared earlier wins over newly released one",
			units: []*models.DeploymentUnit{
				unit("A"),
				unit("B"),
				unit("X", "A"),
			},
			expected: []string{"A", "B", "X"},
		},
		{
			name:     "repeated dependency counts once",
			units:    []*models.DeploymentUnit{unit("B", "A", "A"), unit("A")},
			expected: []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered, err := usecase.ResolveOrder(tt.units)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(ordered))
			assertDependenciesFirst(t, ordered)
		})
	}
}

func assertDependenciesFirst(t *testing.T, ordered []*models.DeploymentUnit) {
	t.Helper()
	position := make(map[string]int)
	for i, u := range ordered {
		position[u.Name] = i
	}
	for _, u := range ordered {
		for _, dep := range u.Dependencies {
			assert.Less(t, position[dep], position[u.Name], "%s must come before %s", dep, u.Name)
		}
	}
}

func TestResolveOrderErrors(t *testing.T) {
	t.Run("unknown dependency", func(t *testing.T) {
		_, err := usecase.ResolveOrder([]*models.DeploymentUnit{unit("AuctionModule", "Nonexistent")})
		var unknown *domain.UnknownDependencyError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "AuctionModule", unknown.Unit)
		assert.Equal(t, "Nonexistent", unknown.Dependency)
	})

	t.Run("duplicate unit", func(t *testing.T) {
		_, err := usecase.ResolveOrder([]*models.DeploymentUnit{unit("A"), unit("A")})
		var dup *domain.DuplicateUnitError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "A", dup.Unit)
	})

	t.Run("self dependency", func(t *testing.T) {
		_, err := usecase.ResolveOrder([]*models.DeploymentUnit{unit("A", "A")})
		var self *domain.SelfDependencyError
		require.ErrorAs(t, err, &self)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := usecase.ResolveOrder([]*models.DeploymentUnit{unit("")})
		assert.ErrorIs(t, err, domain.ErrInvalidUnit)
	})

	cycles := []struct {
		name  string
		units []*models.DeploymentUnit
	}{
		{
			name:  "two unit cycle",
			units: []*models.DeploymentUnit{unit("A", "B"), unit("B", "A")},
		},
		{
			name:  "three unit cycle",
			units: []*models.DeploymentUnit{unit("A", "C"), unit("B", "A"), unit("C", "B")},
		},
		{
			name: "cycle behind a valid prefix",
			units: []*models.DeploymentUnit{
				unit("Root"),
				unit("Tail", "X"),
				unit("X", "Root", "Y"),
				unit("Y", "Z"),
				unit("Z", "X"),
			},
		},
	}
	for _, tt := range cycles {
		t.Run(tt.name, func(t *testing.T) {
			_, err := usecase.ResolveOrder(tt.units)
			var cycle *domain.CycleDetectedError
			require.ErrorAs(t, err, &cycle)
			require.NotEmpty(t, cycle.Members)
			assertRealCycle(t, tt.units, cycle.Members)
		})
	}
}

// assertRealCycle checks that each member depends on the next one and the
// last depends on the first
func assertRealCycle(t *testing.T, units []*models.DeploymentUnit, members []string) {
	t.Helper()
	byName := lo.KeyBy(units, func(u *models.DeploymentUnit) string { return u.Name })
	assert.Equal(t, len(members), len(lo.Uniq(members)), "cycle members repeat: %v", members)
	for i, member := range members {
		next := members[(i+1)%len(members)]
		assert.True(t, byName[member].DependsOn(next), "%s does not depend on %s", member, next)
	}
}

func TestSelectByTags(t *testing.T) {
	units := []*models.DeploymentUnit{
		unit("VibeRoyalty"),
		unit("VibeFixedSwap", "VibeRoyalty"),
		unit("VibeDutchAuction", "VibeRoyalty"),
		unit("Standalone"),
	}
	units[2].Tags = append(units[2].Tags, "auctions")

	t.Run("no tags selects everything", func(t *testing.T) {
		selected, err := usecase.SelectByTags(units, nil)
		require.NoError(t, err)
		assert.Len(t, selected, 4)
	})

	t.Run("tag pulls in dependencies", func(t *testing.T) {
		selected, err := usecase.SelectByTags(units, []string{"auctions"})
		require.NoError(t, err)
		assert.Equal(t, []string{"VibeRoyalty", "VibeDutchAuction"}, names(selected))
	})

	t.Run("several tags", func(t *testing.T) {
		selected, err := usecase.SelectByTags(units, []string{"Standalone", "VibeFixedSwap"})
		require.NoError(t, err)
		assert.Equal(t, []string{"VibeRoyalty", "VibeFixedSwap", "Standalone"}, names(selected))
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := usecase.SelectByTags(units, []string{"missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
