// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/synergydash/synergy-backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SynergyIDEventWithPO is an audit event joined with the purchase order
// number for display. PONumber is nil when the event has no PO linkage.
type SynergyIDEventWithPO struct {
	ID          uuid.UUID       `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	ActorName   *string         `json:"actor_name,omitempty"`
	POID        *uuid.UUID      `json:"po_id,omitempty"`
	POLineID    *uuid.UUID      `json:"po_line_id,omitempty"`
	InventoryID *uuid.UUID      `json:"inventory_id,omitempty"`
	Prefix      string          `json:"prefix"`
	Code        string          `json:"code"`
	Seq         int64           `json:"seq"`
	EventType   string          `json:"event_type"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	PONumber    *string         `json:"po_number,omitempty"`
}

// SynergyIDEventRepositoryImpl implements SynergyIDEventRepository interface
type SynergyIDEventRepositoryImpl struct {
	*BaseRepository[models.SynergyIDEvent, models.SynergyIDEventFilter]
}

// NewSynergyIDEventRepository creates a new audit event repository
func NewSynergyIDEventRepository(db *gorm.DB) SynergyIDEventRepository {
	return &SynergyIDEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SynergyIDEvent, models.SynergyIDEventFilter](db),
	}
}

// Save appends one audit event. Events are never updated or deleted.
func (r *SynergyIDEventRepositoryImpl) Save(ctx context.Context, event *models.SynergyIDEvent) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if len(event.Meta) == 0 {
		event.Meta = json.RawMessage(`{}`)
	}

	err = db.Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to save synergy event: %w", err)
	}

	return nil
}

// List retrieves audit events ordered by created_at descending with optional
// filters, joined with the purchase order number for display
func (r *SynergyIDEventRepositoryImpl) List(ctx context.Context, filter models.SynergyIDEventFilter, limit, offset int) ([]*SynergyIDEventWithPO, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.SynergyIDEvent{}).
		Select("synergy_id_events.id, synergy_id_events.created_at, synergy_id_events.actor_name, " +
			"synergy_id_events.po_id, synergy_id_events.po_line_id, synergy_id_events.inventory_id, " +
			"synergy_id_events.prefix, synergy_id_events.code, synergy_id_events.seq, " +
			"synergy_id_events.event_type, synergy_id_events.meta, purchase_orders.po_number").
		Joins("LEFT JOIN purchase_orders ON purchase_orders.id = synergy_id_events.po_id")

	if filter.Prefix != nil {
		query = query.Where("synergy_id_events.prefix = ?", *filter.Prefix)
	}
	if filter.Code != nil {
		query = query.Where("synergy_id_events.code = ?", *filter.Code)
	}
	if filter.POID != nil {
		query = query.Where("synergy_id_events.po_id = ?", *filter.POID)
	}
	if filter.EventType != nil {
		query = query.Where("synergy_id_events.event_type = ?", *filter.EventType)
	}

	var events []*SynergyIDEventWithPO
	err := query.
		Order("synergy_id_events.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list synergy events: %w", err)
	}

	return events, nil
}

// CountByPrefixAndType counts audit events of one type for a prefix. Audit
// completeness holds when the mint count equals the ledger row count.
func (r *SynergyIDEventRepositoryImpl) CountByPrefixAndType(ctx context.Context, prefix, eventType string) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.SynergyIDEvent{}).
		Where("prefix = ? AND event_type = ?", prefix, eventType).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count synergy events for prefix %s: %w", prefix, err)
	}
	return count, nil
}
