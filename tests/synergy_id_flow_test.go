// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"sync"
	"testing"

	"github.com/synergydash/synergy-backend/app/dto"
	"github.com/synergydash/synergy-backend/app/services"
	businessflow "github.com/synergydash/synergy-backend/business_flow"
	"github.com/synergydash/synergy-backend/models"
	"github.com/synergydash/synergy-backend/repository"
	testingutil "github.com/synergydash/synergy-backend/testing"
	"github.com/synergydash/synergy-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlow(testDB *testingutil.TestDB) (businessflow.SynergyIDFlow, businessflow.SynergyEventFlow) {
	counterRepo := repository.NewPrefixCounterRepository(testDB.DB)
	codeRepo := repository.NewSynergyCodeRepository(testDB.DB)
	eventRepo := repository.NewSynergyIDEventRepository(testDB.DB)
	broadcaster := businessflow.NewEventBroadcaster(nil, "")

	flow := businessflow.NewSynergyIDFlow(counterRepo, codeRepo, eventRepo, broadcaster, testDB.DB)
	eventFlow := businessflow.NewSynergyEventFlow(eventRepo)
	return flow, eventFlow
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "go-test")
}

func TestSynergyIDFlowPeek(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newTestFlow(testDB)
		counterRepo := repository.NewPrefixCounterRepository(testDB.DB)
		codeRepo := repository.NewSynergyCodeRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("FreshPrefixStartsAtOne", func(t *testing.T) {
			code, err := flow.Peek(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, "LAP-0001", code)

			// Lazily creates the counter but nothing else
			counter, err := counterRepo.ByPrefix(ctx, "LAP")
			require.NoError(t, err)
			require.NotNil(t, counter)
			assert.Equal(t, int64(1), counter.NextSeq)

			count, err := codeRepo.CountByPrefix(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})

		t.Run("PeekDoesNotAdvance", func(t *testing.T) {
			first, err := flow.Peek(ctx, "LAP")
			require.NoError(t, err)
			second, err := flow.Peek(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})

		t.Run("CounterBootstrapsAboveExistingLedger", func(t *testing.T) {
			// A restored ledger without its counter must not hand out
			// an existing sequence
			fixtures := testingutil.NewTestFixtures(testDB)
			_, err := fixtures.CreateTestMintedCode("SSD", 12)
			require.NoError(t, err)

			code, err := flow.Peek(ctx, "SSD")
			require.NoError(t, err)
			assert.Equal(t, "SSD-0013", code)
		})

		t.Run("InvalidPrefix", func(t *testing.T) {
			_, err := flow.Peek(ctx, "  ")
			require.Error(t, err)
			be, ok := err.(*businessflow.BusinessError)
			require.True(t, ok)
			assert.Equal(t, "INVALID_PREFIX", be.Code)

			_, err = flow.Peek(ctx, "LAP-TOP")
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSynergyIDFlowTake(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newTestFlow(testDB)
		codeRepo := repository.NewSynergyCodeRepository(testDB.DB)
		eventRepo := repository.NewSynergyIDEventRepository(testDB.DB)
		counterRepo := repository.NewPrefixCounterRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("SequentialTakes", func(t *testing.T) {
			for i, want := range []string{"LAP-0001", "LAP-0002", "LAP-0003"} {
				res, err := flow.Take(ctx, "LAP", nil, testMetadata())
				require.NoError(t, err)
				assert.Equal(t, want, res.Code)
				assert.Equal(t, int64(i+1), res.Seq)
			}

			overview, err := flow.Overview(ctx)
			require.NoError(t, err)
			require.Len(t, overview.Items, 1)
			row := overview.Items[0]
			assert.Equal(t, "LAP", row.Prefix)
			assert.Equal(t, int64(3), row.MintedCount)
			require.NotNil(t, row.MaxMintedSeq)
			assert.Equal(t, int64(3), *row.MaxMintedSeq)
			assert.Equal(t, "LAP-0004", row.NextCode)
		})

		t.Run("LedgerAndAuditWrittenTogether", func(t *testing.T) {
			minted, err := codeRepo.CountByPrefix(ctx, "LAP")
			require.NoError(t, err)
			mints, err := eventRepo.CountByPrefixAndType(ctx, "LAP", models.SynergyEventMint)
			require.NoError(t, err)
			assert.Equal(t, minted, mints)
		})

		t.Run("CarriesCallerContext", func(t *testing.T) {
			fixtures := testingutil.NewTestFixtures(testDB)
			po, err := fixtures.CreateTestPurchaseOrder("PO-2026-042")
			require.NoError(t, err)

			actor := "receiver"
			res, err := flow.Take(ctx, "LAP", &dto.TakeCodeRequest{
				POID:  &po.ID,
				Actor: &actor,
			}, testMetadata())
			require.NoError(t, err)

			events, err := eventRepo.List(ctx, models.SynergyIDEventFilter{Code: &res.Code}, 10, 0)
			require.NoError(t, err)
			require.Len(t, events, 1)
			require.NotNil(t, events[0].ActorName)
			assert.Equal(t, "receiver", *events[0].ActorName)
			require.NotNil(t, events[0].PONumber)
			assert.Equal(t, "PO-2026-042", *events[0].PONumber)
		})

		t.Run("NoRegressionInvariant", func(t *testing.T) {
			counter, err := counterRepo.ByPrefix(ctx, "LAP")
			require.NoError(t, err)
			max, err := codeRepo.MaxSeqByPrefix(ctx, "LAP")
			require.NoError(t, err)
			assert.Greater(t, counter.NextSeq, max)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSynergyIDFlowConcurrentTakes(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newTestFlow(testDB)
		codeRepo := repository.NewSynergyCodeRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		const workers = 50

		var wg sync.WaitGroup
		codes := make(chan string, workers)
		errs := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := flow.Take(ctx, "LAP", nil, testMetadata())
				if err != nil {
					errs <- err
					return
				}
				codes <- res.Code
			}()
		}
		wg.Wait()
		close(codes)
		close(errs)

		for err := range errs {
			t.Fatalf("concurrent take failed: %v", err)
		}

		// Exactly the codes LAP-0001..LAP-0050, no duplicates, no gaps
		seen := make(map[string]bool, workers)
		for code := range codes {
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
		}
		require.Len(t, seen, workers)
		for seq := int64(1); seq <= workers; seq++ {
			assert.True(t, seen[models.FormatSynergyCode("LAP", seq)])
		}

		max, err := codeRepo.MaxSeqByPrefix(ctx, "LAP")
		require.NoError(t, err)
		assert.Equal(t, int64(workers), max)

		return nil
	})
	require.NoError(t, err)
}

func TestSynergyIDFlowSetAndReset(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newTestFlow(testDB)
		counterRepo := repository.NewPrefixCounterRepository(testDB.DB)
		eventRepo := repository.NewSynergyIDEventRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		actor := "mgr"

		// Mint three codes so the ledger max is 3 and next_seq is 4
		for i := 0; i < 3; i++ {
			_, err := flow.Take(ctx, "LAP", nil, testMetadata())
			require.NoError(t, err)
		}

		t.Run("SetBelowSafeNextIsConflict", func(t *testing.T) {
			reason := "typo fix"
			res, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 2, Actor: &actor, Reason: &reason}, testMetadata())
			require.NoError(t, err)
			assert.False(t, res.Applied)
			require.NotNil(t, res.SafeNext)
			assert.Equal(t, int64(4), *res.SafeNext)
			assert.NotEmpty(t, res.Message)

			// Counter untouched, no audit event for the refused override
			counter, err := counterRepo.ByPrefix(ctx, "LAP")
			require.NoError(t, err)
			assert.Equal(t, int64(4), counter.NextSeq)

			count, err := eventRepo.CountByPrefixAndType(ctx, "LAP", models.SynergyEventSet)
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})

		t.Run("SetEqualToMaxMintedIsConflict", func(t *testing.T) {
			res, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 3, Actor: &actor}, testMetadata())
			require.NoError(t, err)
			assert.False(t, res.Applied)
		})

		t.Run("SetAboveSafeNextApplies", func(t *testing.T) {
			reason := "skip block"
			res, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 10, Actor: &actor, Reason: &reason}, testMetadata())
			require.NoError(t, err)
			assert.True(t, res.Applied)
			assert.Equal(t, int64(10), res.NextSeq)
			assert.Nil(t, res.SafeNext)

			minted, err := flow.Take(ctx, "LAP", nil, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "LAP-0010", minted.Code)

			count, err := eventRepo.CountByPrefixAndType(ctx, "LAP", models.SynergyEventSet)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("SetMayLowerCounterToSafeNext", func(t *testing.T) {
			// next_seq is 11 after the mint above; 11 equals safe_next,
			// so setting it back down is allowed
			res, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 11, Actor: &actor}, testMetadata())
			require.NoError(t, err)
			assert.True(t, res.Applied)
			assert.Equal(t, int64(11), res.NextSeq)
		})

		t.Run("ResetReturnsToSafeNext", func(t *testing.T) {
			// Push the counter high, then reset; it lands one past the
			// highest minted sequence (10), not at 1
			_, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 100, Actor: &actor}, testMetadata())
			require.NoError(t, err)

			res, err := flow.Reset(ctx, "LAP", &dto.ResetCounterRequest{Actor: &actor}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, int64(11), res.NextSeq)

			count, err := eventRepo.CountByPrefixAndType(ctx, "LAP", models.SynergyEventReset)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ResetIsIdempotent", func(t *testing.T) {
			first, err := flow.Reset(ctx, "LAP", &dto.ResetCounterRequest{Actor: &actor}, testMetadata())
			require.NoError(t, err)
			second, err := flow.Reset(ctx, "LAP", &dto.ResetCounterRequest{Actor: &actor}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, first.NextSeq, second.NextSeq)
		})

		t.Run("SetRejectsNonPositive", func(t *testing.T) {
			_, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 0, Actor: &actor}, testMetadata())
			require.Error(t, err)
			be, ok := err.(*businessflow.BusinessError)
			require.True(t, ok)
			assert.Equal(t, "INVALID_NEXT_SEQ", be.Code)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSynergyEventFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, eventFlow := newTestFlow(testDB)
		ctx := testingutil.CreateTestContext()

		actor := "mgr"
		for i := 0; i < 3; i++ {
			_, err := flow.Take(ctx, "LAP", nil, testMetadata())
			require.NoError(t, err)
		}
		_, err := flow.Set(ctx, "LAP", &dto.SetNextSeqRequest{Next: 10, Actor: &actor}, testMetadata())
		require.NoError(t, err)

		t.Run("ListNewestFirst", func(t *testing.T) {
			res, err := eventFlow.ListEvents(ctx, &dto.ListSynergyEventsRequest{})
			require.NoError(t, err)
			require.Len(t, res.Items, 4)
			assert.Equal(t, models.SynergyEventSet, res.Items[0].EventType)
		})

		t.Run("ListWithPrefixFilter", func(t *testing.T) {
			prefix := "GHOST"
			res, err := eventFlow.ListEvents(ctx, &dto.ListSynergyEventsRequest{Prefix: &prefix})
			require.NoError(t, err)
			assert.Empty(t, res.Items)
		})

		t.Run("ListRejectsOversizedLimit", func(t *testing.T) {
			_, err := eventFlow.ListEvents(ctx, &dto.ListSynergyEventsRequest{Limit: businessflow.MaxEventsLimit + 1})
			require.Error(t, err)
			be, ok := err.(*businessflow.BusinessError)
			require.True(t, ok)
			assert.Equal(t, "INVALID_LIMIT", be.Code)
		})

		t.Run("ListRejectsNegativeOffset", func(t *testing.T) {
			_, err := eventFlow.ListEvents(ctx, &dto.ListSynergyEventsRequest{Offset: -1})
			require.Error(t, err)
		})

		t.Run("Export", func(t *testing.T) {
			filename, data, err := eventFlow.ExportEvents(ctx, &dto.ListSynergyEventsRequest{})
			require.NoError(t, err)
			assert.Contains(t, filename, "synergy_id_events_")
			assert.Contains(t, filename, ".xlsx")
			assert.NotEmpty(t, data)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	// Validates the admin auth building blocks without a database
	svc := newAdminTokenService(t)

	token, err := svc.GenerateAdminToken("mgr")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "mgr", claims.ActorName)
	assert.NotEmpty(t, claims.TokenID)

	require.NoError(t, svc.RevokeToken(token))
	_, err = svc.ValidateAdminToken(token)
	assert.Error(t, err)
	assert.True(t, svc.IsTokenRevoked(claims.TokenID))
}

func newAdminTokenService(t *testing.T) services.TokenService {
	t.Helper()
	return services.NewTokenService("test-secret", utils.AdminTokenTTL, "synergy-backend", "synergy-dashboard")
}
