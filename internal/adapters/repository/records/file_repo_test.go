package records_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/adapters/repository/records"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

func royaltyRecord() *models.AddressRecord {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.AddressRecord{
		UnitName:              "VibeRoyalty",
		Contract:              "VibeRoyalty",
		ProxyAddress:          common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		ImplementationAddress: common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		ImplementationHash:    common.HexToHash("0x01"),
		DeployedAtBlock:       10,
		CreatedAt:             created,
		UpdatedAt:             created,
	}
}

func TestFileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("put and get record", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)

		require.NoError(t, repo.Put(ctx, royaltyRecord()))

		got, err := repo.Get(ctx, "VibeRoyalty")
		require.NoError(t, err)
		if diff := cmp.Diff(royaltyRecord(), got); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("get missing record returns not found", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)

		_, err = repo.Get(ctx, "VibeRoyalty")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("records survive reopening", func(t *testing.T) {
		dir := t.TempDir()
		repo, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)
		require.NoError(t, repo.Put(ctx, royaltyRecord()))
		require.NoError(t, repo.MarkInitialized(ctx, "VibeRoyalty"))

		reopened, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)
		got, err := reopened.Get(ctx, "VibeRoyalty")
		require.NoError(t, err)
		assert.True(t, got.Initialized)
		assert.Equal(t, royaltyRecord().ProxyAddress, got.ProxyAddress)
	})

	t.Run("networks are kept apart", func(t *testing.T) {
		dir := t.TempDir()
		sepolia, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)
		require.NoError(t, sepolia.Put(ctx, royaltyRecord()))

		mainnet, err := records.NewFileRepository(dir, "mainnet")
		require.NoError(t, err)
		_, err = mainnet.Get(ctx, "VibeRoyalty")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("put never resets initialized", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)
		require.NoError(t, repo.Put(ctx, royaltyRecord()))
		require.NoError(t, repo.MarkInitialized(ctx, "VibeRoyalty"))

		upgraded := royaltyRecord()
		upgraded.ImplementationHash = common.HexToHash("0x02")
		upgraded.DeployedAtBlock = 20
		upgraded.CreatedAt = time.Now()
		require.NoError(t, repo.Put(ctx, upgraded))

		got, err := repo.Get(ctx, "VibeRoyalty")
		require.NoError(t, err)
		assert.True(t, got.Initialized)
		assert.Equal(t, common.HexToHash("0x02"), got.ImplementationHash)
		assert.Equal(t, uint64(20), got.DeployedAtBlock)
		assert.Equal(t, royaltyRecord().CreatedAt, got.CreatedAt)
	})

	t.Run("put is idempotent", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)
		require.NoError(t, repo.Put(ctx, royaltyRecord()))
		before, err := os.ReadFile(repo.Path())
		require.NoError(t, err)

		require.NoError(t, repo.Put(ctx, royaltyRecord()))
		after, err := os.ReadFile(repo.Path())
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("mark initialized on unknown unit", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)

		err = repo.MarkInitialized(ctx, "Nonexistent")
		var unknown *domain.UnknownUnitError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "Nonexistent", unknown.Unit)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)
		require.NoError(t, repo.Put(ctx, royaltyRecord()))

		got, err := repo.Get(ctx, "VibeRoyalty")
		require.NoError(t, err)
		got.Initialized = true

		again, err := repo.Get(ctx, "VibeRoyalty")
		require.NoError(t, err)
		assert.False(t, again.Initialized)
	})

	t.Run("list is sorted by unit name", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)
		for _, name := range []string{"VibeFixedSwap", "VibeDutchAuction", "VibeRoyalty"} {
			record := royaltyRecord()
			record.UnitName = name
			require.NoError(t, repo.Put(ctx, record))
		}

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "VibeDutchAuction", list[0].UnitName)
		assert.Equal(t, "VibeFixedSwap", list[1].UnitName)
		assert.Equal(t, "VibeRoyalty", list[2].UnitName)
	})

	t.Run("file is keyed by unit with hex addresses", func(t *testing.T) {
		repo, err := records.NewFileRepository(t.TempDir(), "sepolia")
		require.NoError(t, err)
		require.NoError(t, repo.Put(ctx, royaltyRecord()))

		data, err := os.ReadFile(repo.Path())
		require.NoError(t, err)
		var raw map[string]map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Contains(t, raw, "VibeRoyalty")
		assert.Equal(t, "0x00000000000000000000000000000000000000a1", raw["VibeRoyalty"]["proxyAddress"])
	})

	t.Run("lock excludes a second run", func(t *testing.T) {
		dir := t.TempDir()
		first, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)
		second, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)

		unlock, err := first.Lock(ctx)
		require.NoError(t, err)

		_, err = second.Lock(ctx)
		assert.ErrorIs(t, err, domain.ErrRunLocked)

		require.NoError(t, unlock())
		unlock, err = second.Lock(ctx)
		require.NoError(t, err)
		require.NoError(t, unlock())
	})

	t.Run("lock reloads records written by another instance", func(t *testing.T) {
		dir := t.TempDir()
		reader, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)
		writer, err := records.NewFileRepository(dir, "sepolia")
		require.NoError(t, err)
		require.NoError(t, writer.Put(ctx, royaltyRecord()))

		unlock, err := reader.Lock(ctx)
		require.NoError(t, err)
		defer func() { _ = unlock() }()

		_, err = reader.Get(ctx, "VibeRoyalty")
		assert.NoError(t, err)
	})

	t.Run("empty network is rejected", func(t *testing.T) {
		_, err := records.NewFileRepository(t.TempDir(), "")
		assert.Error(t, err)
	})
}
