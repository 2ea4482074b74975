// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"testing"

	"github.com/synergydash/synergy-backend/models"
	"github.com/synergydash/synergy-backend/repository"
	testingutil "github.com/synergydash/synergy-backend/testing"
	"github.com/synergydash/synergy-backend/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixCounterRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewPrefixCounterRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("ByPrefixNotFound", func(t *testing.T) {
			counter, err := repo.ByPrefix(ctx, "NOPE")
			require.NoError(t, err)
			assert.Nil(t, counter)
		})

		t.Run("CreateIfAbsent", func(t *testing.T) {
			now := utils.UTCNow()
			err := repo.CreateIfAbsent(ctx, &models.PrefixCounter{
				Prefix:    "LAP",
				NextSeq:   1,
				CreatedAt: now,
				UpdatedAt: now,
			})
			require.NoError(t, err)

			counter, err := repo.ByPrefix(ctx, "LAP")
			require.NoError(t, err)
			require.NotNil(t, counter)
			assert.Equal(t, int64(1), counter.NextSeq)
		})

		t.Run("CreateIfAbsentIsIdempotent", func(t *testing.T) {
			now := utils.UTCNow()
			err := repo.CreateIfAbsent(ctx, &models.PrefixCounter{
				Prefix:    "LAP",
				NextSeq:   99,
				CreatedAt: now,
				UpdatedAt: now,
			})
			require.NoError(t, err)

			// Existing row must win; the second create is a no-op
			counter, err := repo.ByPrefix(ctx, "LAP")
			require.NoError(t, err)
			require.NotNil(t, counter)
			assert.Equal(t, int64(1), counter.NextSeq)
		})

		t.Run("UpdateNextSeq", func(t *testing.T) {
			err := repo.UpdateNextSeq(ctx, "LAP", 5)
			require.NoError(t, err)

			counter, err := repo.ByPrefix(ctx, "LAP")
			require.NoError(t, err)
			require.NotNil(t, counter)
			assert.Equal(t, int64(5), counter.NextSeq)
		})

		t.Run("UpdateNextSeqUnknownPrefix", func(t *testing.T) {
			err := repo.UpdateNextSeq(ctx, "GHOST", 5)
			assert.Error(t, err)
		})

		t.Run("LockForUpdateInsideTransaction", func(t *testing.T) {
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				counter, err := repo.LockForUpdate(txCtx, "LAP")
				require.NoError(t, err)
				require.NotNil(t, counter)
				assert.Equal(t, int64(5), counter.NextSeq)

				missing, err := repo.LockForUpdate(txCtx, "GHOST")
				require.NoError(t, err)
				assert.Nil(t, missing)
				return nil
			})
			require.NoError(t, err)
		})

		t.Run("List", func(t *testing.T) {
			now := utils.UTCNow()
			require.NoError(t, repo.CreateIfAbsent(ctx, &models.PrefixCounter{
				Prefix: "CPU", NextSeq: 1, CreatedAt: now, UpdatedAt: now,
			}))

			counters, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, counters, 2)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSynergyCodeRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSynergyCodeRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("MaxSeqByPrefixEmptyLedger", func(t *testing.T) {
			max, err := repo.MaxSeqByPrefix(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, int64(0), max)
		})

		t.Run("SaveAndByCode", func(t *testing.T) {
			code := &models.SynergyCode{
				Prefix:    "LAP",
				Seq:       1,
				Code:      models.FormatSynergyCode("LAP", 1),
				CreatedAt: utils.UTCNow(),
			}
			require.NoError(t, repo.Save(ctx, code))

			found, err := repo.ByCode(ctx, "LAP-0001")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "LAP", found.Prefix)
			assert.Equal(t, int64(1), found.Seq)
		})

		t.Run("DuplicateSeqRejected", func(t *testing.T) {
			err := repo.Save(ctx, &models.SynergyCode{
				Prefix:    "LAP",
				Seq:       1,
				Code:      models.FormatSynergyCode("LAP", 1),
				CreatedAt: utils.UTCNow(),
			})
			assert.Error(t, err)
		})

		t.Run("MaxSeqAndCount", func(t *testing.T) {
			_, err := fixtures.CreateTestMintedCode("LAP", 2)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMintedCode("LAP", 7)
			require.NoError(t, err)

			max, err := repo.MaxSeqByPrefix(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, int64(7), max)

			count, err := repo.CountByPrefix(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)
		})

		t.Run("StatsPerPrefix", func(t *testing.T) {
			_, err := fixtures.CreateTestMintedCode("CPU", 1)
			require.NoError(t, err)

			stats, err := repo.StatsPerPrefix(ctx)
			require.NoError(t, err)
			require.Len(t, stats, 2)

			byPrefix := make(map[string]*models.PrefixMintStats)
			for _, st := range stats {
				byPrefix[st.Prefix] = st
			}
			require.Contains(t, byPrefix, "LAP")
			assert.Equal(t, int64(3), byPrefix["LAP"].MintedCount)
			assert.Equal(t, int64(7), byPrefix["LAP"].MaxMintedSeq)
			require.NotNil(t, byPrefix["LAP"].LastMintedAt)
			assert.Equal(t, int64(1), byPrefix["CPU"].MintedCount)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSynergyIDEventRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSynergyIDEventRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		po, err := fixtures.CreateTestPurchaseOrder("PO-2026-001")
		require.NoError(t, err)

		t.Run("SaveFillsDefaults", func(t *testing.T) {
			event := &models.SynergyIDEvent{
				Prefix:    "LAP",
				Code:      "LAP-0001",
				Seq:       1,
				EventType: models.SynergyEventMint,
				CreatedAt: utils.UTCNow(),
			}
			require.NoError(t, repo.Save(ctx, event))
			assert.NotEqual(t, uuid.Nil, event.ID)
			assert.JSONEq(t, `{}`, string(event.Meta))
		})

		t.Run("ListJoinsPONumber", func(t *testing.T) {
			_, err := fixtures.CreateTestEvent("LAP", 2, models.SynergyEventMint, &po.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestEvent("CPU", 1, models.SynergyEventSet, nil)
			require.NoError(t, err)

			events, err := repo.List(ctx, models.SynergyIDEventFilter{}, 100, 0)
			require.NoError(t, err)
			require.Len(t, events, 3)

			var linked *repository.SynergyIDEventWithPO
			for _, e := range events {
				if e.POID != nil {
					linked = e
				}
			}
			require.NotNil(t, linked)
			require.NotNil(t, linked.PONumber)
			assert.Equal(t, "PO-2026-001", *linked.PONumber)
		})

		t.Run("ListFilters", func(t *testing.T) {
			prefix := "CPU"
			events, err := repo.List(ctx, models.SynergyIDEventFilter{Prefix: &prefix}, 100, 0)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, models.SynergyEventSet, events[0].EventType)

			events, err = repo.List(ctx, models.SynergyIDEventFilter{POID: &po.ID}, 100, 0)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "LAP-0002", events[0].Code)
		})

		t.Run("ListRespectsLimit", func(t *testing.T) {
			events, err := repo.List(ctx, models.SynergyIDEventFilter{}, 2, 0)
			require.NoError(t, err)
			assert.Len(t, events, 2)
		})

		t.Run("CountByPrefixAndType", func(t *testing.T) {
			count, err := repo.CountByPrefixAndType(ctx, "LAP", models.SynergyEventMint)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			count, err = repo.CountByPrefixAndType(ctx, "CPU", models.SynergyEventReset)
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPurchaseOrderRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewPurchaseOrderRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		po := &models.PurchaseOrder{
			ID:        uuid.New(),
			PONumber:  "PO-2026-777",
			CreatedAt: utils.UTCNow(),
		}
		require.NoError(t, repo.Save(ctx, po))

		found, err := repo.ByUUID(ctx, po.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "PO-2026-777", found.PONumber)

		missing, err := repo.ByUUID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)

		return nil
	})
	require.NoError(t, err)
}
