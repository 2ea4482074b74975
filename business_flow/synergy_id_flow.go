package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/synergydash/synergy-backend/app/dto"
	"github.com/synergydash/synergy-backend/models"
	"github.com/synergydash/synergy-backend/repository"
	"github.com/synergydash/synergy-backend/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SynergyIDFlow is the allocator service: it mints unique, gapless codes per
// prefix and keeps the counter, ledger, and audit log transactionally
// consistent.
type SynergyIDFlow interface {
	Peek(ctx context.Context, prefix string) (string, error)
	Take(ctx context.Context, prefix string, req *dto.TakeCodeRequest, metadata *ClientMetadata) (*dto.TakeCodeResponse, error)
	Set(ctx context.Context, prefix string, req *dto.SetNextSeqRequest, metadata *ClientMetadata) (*dto.SetNextSeqResponse, error)
	Reset(ctx context.Context, prefix string, req *dto.ResetCounterRequest, metadata *ClientMetadata) (*dto.ResetCounterResponse, error)
	Overview(ctx context.Context) (*dto.SynergyIDOverviewResponse, error)
}

const (
	// takeMaxAttempts bounds the internal retry loop for transient
	// contention during a mint.
	takeMaxAttempts = 4

	// takeBackoffBase is the first retry delay; it doubles per attempt.
	takeBackoffBase = 25 * time.Millisecond
)

// SynergyIDFlowImpl implements SynergyIDFlow
type SynergyIDFlowImpl struct {
	counterRepo repository.PrefixCounterRepository
	codeRepo    repository.SynergyCodeRepository
	eventRepo   repository.SynergyIDEventRepository
	broadcaster *EventBroadcaster
	db          *gorm.DB
}

// NewSynergyIDFlow creates a new allocator flow
func NewSynergyIDFlow(
	counterRepo repository.PrefixCounterRepository,
	codeRepo repository.SynergyCodeRepository,
	eventRepo repository.SynergyIDEventRepository,
	broadcaster *EventBroadcaster,
	db *gorm.DB,
) SynergyIDFlow {
	return &SynergyIDFlowImpl{
		counterRepo: counterRepo,
		codeRepo:    codeRepo,
		eventRepo:   eventRepo,
		broadcaster: broadcaster,
		db:          db,
	}
}

// Peek previews the code the next Take would return. It lazily creates the
// counter row (idempotent) but writes nothing to the ledger or audit log.
func (s *SynergyIDFlowImpl) Peek(ctx context.Context, prefix string) (string, error) {
	p, err := normalizePrefix(prefix)
	if err != nil {
		return "", NewBusinessError("INVALID_PREFIX", "Invalid prefix", err)
	}

	counter, err := s.counterRepo.ByPrefix(ctx, p)
	if err != nil {
		return "", NewBusinessError("PEEK_FAILED", "Failed to read counter", err)
	}
	if counter == nil {
		if err := s.ensureCounter(ctx, p); err != nil {
			return "", NewBusinessError("PEEK_FAILED", "Failed to initialize counter", err)
		}
		counter, err = s.counterRepo.ByPrefix(ctx, p)
		if err != nil || counter == nil {
			return "", NewBusinessError("PEEK_FAILED", "Failed to read counter after initialization", err)
		}
	}

	return models.FormatSynergyCode(p, counter.NextSeq), nil
}

// Take mints the next code for a prefix. The whole step runs as one
// transaction: lock the counter row, advance it, append the ledger row,
// append the mint event. A failure anywhere rolls back everything, so the
// counter never advances without a matching ledger and audit row. Transient
// contention is retried with bounded exponential backoff; each retry
// reserves a fresh slot, which is the intended semantics.
func (s *SynergyIDFlowImpl) Take(ctx context.Context, prefix string, req *dto.TakeCodeRequest, metadata *ClientMetadata) (*dto.TakeCodeResponse, error) {
	p, err := normalizePrefix(prefix)
	if err != nil {
		return nil, NewBusinessError("INVALID_PREFIX", "Invalid prefix", err)
	}
	if req == nil {
		req = &dto.TakeCodeRequest{}
	}

	var minted *models.SynergyCode
	var event *models.SynergyIDEvent

	for attempt := 0; ; attempt++ {
		minted, event, err = s.mintOnce(ctx, p, req, metadata)
		if err == nil {
			break
		}
		if !isTransientMintError(err) {
			return nil, NewBusinessError("TAKE_FAILED", "Failed to mint synergy code", err)
		}
		if attempt+1 >= takeMaxAttempts {
			return nil, NewBusinessError("TAKE_FAILED", "Failed to mint synergy code", fmt.Errorf("%w: %w", ErrMintRetriesExhausted, err))
		}
		mintRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return nil, NewBusinessError("TAKE_FAILED", "Mint cancelled", ctx.Err())
		case <-time.After(takeBackoffBase << attempt):
		}
	}

	mintsTotal.WithLabelValues(p).Inc()
	s.broadcaster.Publish(ctx, event)

	return &dto.TakeCodeResponse{
		Prefix: p,
		Seq:    minted.Seq,
		Code:   minted.Code,
	}, nil
}

// mintOnce is a single mint transaction attempt.
func (s *SynergyIDFlowImpl) mintOnce(ctx context.Context, prefix string, req *dto.TakeCodeRequest, metadata *ClientMetadata) (*models.SynergyCode, *models.SynergyIDEvent, error) {
	var minted *models.SynergyCode
	var event *models.SynergyIDEvent

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		counter, err := s.lockOrCreateCounter(txCtx, prefix)
		if err != nil {
			return err
		}

		seq := counter.NextSeq
		if err := s.counterRepo.UpdateNextSeq(txCtx, prefix, seq+1); err != nil {
			return err
		}

		now := utils.UTCNow()
		minted = &models.SynergyCode{
			Prefix:      prefix,
			Seq:         seq,
			Code:        models.FormatSynergyCode(prefix, seq),
			POID:        req.POID,
			POLineID:    req.POLineID,
			InventoryID: req.InventoryID,
			CreatedAt:   now,
		}
		if err := s.codeRepo.Save(txCtx, minted); err != nil {
			return err
		}

		meta := mintEventMeta(seq, metadata)
		event = &models.SynergyIDEvent{
			ID:          uuid.New(),
			ActorName:   req.Actor,
			POID:        req.POID,
			POLineID:    req.POLineID,
			InventoryID: req.InventoryID,
			Prefix:      prefix,
			Code:        minted.Code,
			Seq:         seq,
			EventType:   models.SynergyEventMint,
			Meta:        meta,
			CreatedAt:   now,
		}
		return s.eventRepo.Save(txCtx, event)
	})
	if err != nil {
		return nil, nil, err
	}
	return minted, event, nil
}

// Set manually overrides the counter. A requested value that could collide
// with an already minted code is rejected as a typed result, not an error:
// the operator must choose, nothing retries this. No state changes and no
// audit event is written on the conflict branch.
func (s *SynergyIDFlowImpl) Set(ctx context.Context, prefix string, req *dto.SetNextSeqRequest, metadata *ClientMetadata) (*dto.SetNextSeqResponse, error) {
	p, err := normalizePrefix(prefix)
	if err != nil {
		return nil, NewBusinessError("INVALID_PREFIX", "Invalid prefix", err)
	}
	if req == nil || req.Next < 1 {
		return nil, NewBusinessError("INVALID_NEXT_SEQ", "Invalid next sequence", ErrNextSeqTooLow)
	}

	var resp *dto.SetNextSeqResponse
	var event *models.SynergyIDEvent

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		counter, err := s.lockOrCreateCounter(txCtx, p)
		if err != nil {
			return err
		}

		maxMinted, err := s.codeRepo.MaxSeqByPrefix(txCtx, p)
		if err != nil {
			return err
		}
		safeNext := maxMinted + 1

		if req.Next < safeNext {
			resp = &dto.SetNextSeqResponse{
				Prefix:   p,
				Applied:  false,
				NextSeq:  counter.NextSeq,
				SafeNext: &safeNext,
				Message: fmt.Sprintf(
					"Cannot set next sequence for prefix %s to %d because IDs up to %d may already exist. The minimum safe value is %d.",
					p, req.Next, safeNext-1, safeNext),
			}
			return nil
		}

		if err := s.counterRepo.UpdateNextSeq(txCtx, p, req.Next); err != nil {
			return err
		}

		meta := overrideEventMeta(counter.NextSeq, req.Next, req.Reason, metadata)
		event = &models.SynergyIDEvent{
			ID:        uuid.New(),
			ActorName: req.Actor,
			Prefix:    p,
			Code:      models.FormatSynergyCode(p, req.Next),
			Seq:       req.Next,
			EventType: models.SynergyEventSet,
			Meta:      meta,
			CreatedAt: utils.UTCNow(),
		}
		if err := s.eventRepo.Save(txCtx, event); err != nil {
			return err
		}

		resp = &dto.SetNextSeqResponse{
			Prefix:  p,
			Applied: true,
			NextSeq: req.Next,
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("SET_FAILED", "Failed to set next sequence", err)
	}

	if resp.Applied {
		counterOverridesTotal.WithLabelValues(p, models.SynergyEventSet).Inc()
		s.broadcaster.Publish(ctx, event)
	} else {
		sequenceConflictsTotal.WithLabelValues(p).Inc()
	}
	return resp, nil
}

// Reset moves the counter to the smallest safe value, one past the highest
// minted sequence. It cannot conflict by construction and is idempotent when
// repeated without intervening mints. Used to recover a counter that drifted
// from the ledger, e.g. after a restored backup.
func (s *SynergyIDFlowImpl) Reset(ctx context.Context, prefix string, req *dto.ResetCounterRequest, metadata *ClientMetadata) (*dto.ResetCounterResponse, error) {
	p, err := normalizePrefix(prefix)
	if err != nil {
		return nil, NewBusinessError("INVALID_PREFIX", "Invalid prefix", err)
	}
	if req == nil {
		req = &dto.ResetCounterRequest{}
	}

	var resp *dto.ResetCounterResponse
	var event *models.SynergyIDEvent

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		counter, err := s.lockOrCreateCounter(txCtx, p)
		if err != nil {
			return err
		}

		maxMinted, err := s.codeRepo.MaxSeqByPrefix(txCtx, p)
		if err != nil {
			return err
		}
		safeNext := maxMinted + 1

		if err := s.counterRepo.UpdateNextSeq(txCtx, p, safeNext); err != nil {
			return err
		}

		meta := resetEventMeta(counter.NextSeq, safeNext, metadata)
		event = &models.SynergyIDEvent{
			ID:        uuid.New(),
			ActorName: req.Actor,
			Prefix:    p,
			Code:      models.FormatSynergyCode(p, safeNext),
			Seq:       safeNext,
			EventType: models.SynergyEventReset,
			Meta:      meta,
			CreatedAt: utils.UTCNow(),
		}
		if err := s.eventRepo.Save(txCtx, event); err != nil {
			return err
		}

		resp = &dto.ResetCounterResponse{Prefix: p, NextSeq: safeNext}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("RESET_FAILED", "Failed to reset counter", err)
	}

	counterOverridesTotal.WithLabelValues(p, models.SynergyEventReset).Inc()
	s.broadcaster.Publish(ctx, event)
	return resp, nil
}

// Overview returns every prefix's pointer and its ledger stats from a
// consistent read. No locks are taken.
func (s *SynergyIDFlowImpl) Overview(ctx context.Context) (*dto.SynergyIDOverviewResponse, error) {
	counters, err := s.counterRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("OVERVIEW_FAILED", "Failed to list counters", err)
	}

	stats, err := s.codeRepo.StatsPerPrefix(ctx)
	if err != nil {
		return nil, NewBusinessError("OVERVIEW_FAILED", "Failed to aggregate ledger", err)
	}
	statsByPrefix := make(map[string]*models.PrefixMintStats, len(stats))
	for _, st := range stats {
		statsByPrefix[st.Prefix] = st
	}

	items := make([]dto.SynergyIDOverviewRow, 0, len(counters))
	for _, counter := range counters {
		row := dto.SynergyIDOverviewRow{
			Prefix:   counter.Prefix,
			NextSeq:  counter.NextSeq,
			NextCode: models.FormatSynergyCode(counter.Prefix, counter.NextSeq),
		}
		if st, ok := statsByPrefix[counter.Prefix]; ok {
			row.MintedCount = st.MintedCount
			row.MaxMintedSeq = utils.ToPtr(st.MaxMintedSeq)
			row.LastMintedAt = st.LastMintedAt
		}
		items = append(items, row)
	}

	return &dto.SynergyIDOverviewResponse{Items: items}, nil
}

// ensureCounter creates the counter row outside a mint, initialized to one
// past the highest minted sequence so a lazily created counter can never
// point at an already minted code. Fresh prefixes start at 1.
func (s *SynergyIDFlowImpl) ensureCounter(ctx context.Context, prefix string) error {
	maxMinted, err := s.codeRepo.MaxSeqByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	now := utils.UTCNow()
	return s.counterRepo.CreateIfAbsent(ctx, &models.PrefixCounter{
		Prefix:    prefix,
		NextSeq:   maxMinted + 1,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// lockOrCreateCounter returns the counter row locked FOR UPDATE, creating it
// first when absent. When two transactions race on the lazy create, the
// insert's conflict target makes the loser a no-op and the second locked
// read observes the winner's row.
func (s *SynergyIDFlowImpl) lockOrCreateCounter(txCtx context.Context, prefix string) (*models.PrefixCounter, error) {
	counter, err := s.counterRepo.LockForUpdate(txCtx, prefix)
	if err != nil {
		return nil, err
	}
	if counter != nil {
		return counter, nil
	}

	if err := s.ensureCounter(txCtx, prefix); err != nil {
		return nil, err
	}

	counter, err = s.counterRepo.LockForUpdate(txCtx, prefix)
	if err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, fmt.Errorf("counter for prefix %s missing after creation", prefix)
	}
	return counter, nil
}

// isTransientMintError reports whether a failed mint transaction may be
// retried: serialization failures, deadlocks, and the unique violations
// produced by two transactions racing on the lazy counter create. Anything
// else is a real failure and must surface.
func isTransientMintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func mintEventMeta(seq int64, metadata *ClientMetadata) json.RawMessage {
	m := map[string]any{
		"previous_next_seq": seq,
		"new_next_seq":      seq + 1,
	}
	addClientMeta(m, metadata)
	raw, _ := json.Marshal(m)
	return raw
}

func overrideEventMeta(previous, requested int64, reason *string, metadata *ClientMetadata) json.RawMessage {
	m := map[string]any{
		"previous_next_seq":  previous,
		"requested_next_seq": requested,
	}
	if reason != nil {
		m["reason"] = *reason
	}
	addClientMeta(m, metadata)
	raw, _ := json.Marshal(m)
	return raw
}

func resetEventMeta(previous, safeNext int64, metadata *ClientMetadata) json.RawMessage {
	m := map[string]any{
		"previous_next_seq": previous,
		"safe_next":         safeNext,
		"reason":            "auto-reset",
	}
	addClientMeta(m, metadata)
	raw, _ := json.Marshal(m)
	return raw
}

func addClientMeta(m map[string]any, metadata *ClientMetadata) {
	if metadata == nil {
		return
	}
	if metadata.RequestID != "" {
		m["request_id"] = metadata.RequestID
	}
	if metadata.IPAddress != "" {
		m["ip_address"] = metadata.IPAddress
	}
}
