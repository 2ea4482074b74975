package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SynergyIDEvent is one row of the append-only audit stream. Every mint has
// exactly one event; every counter override or reset has exactly one event.
// Events are written in the same transaction as the state change they
// describe, so the audit log can never drift from the counter or the ledger.
type SynergyIDEvent struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ActorName   *string         `gorm:"size:255" json:"actor_name,omitempty"`
	POID        *uuid.UUID      `gorm:"type:uuid;index:idx_synergy_events_po_id" json:"po_id,omitempty"`
	POLineID    *uuid.UUID      `gorm:"type:uuid" json:"po_line_id,omitempty"`
	InventoryID *uuid.UUID      `gorm:"type:uuid" json:"inventory_id,omitempty"`
	Prefix      string          `gorm:"size:32;not null;index:idx_synergy_events_prefix" json:"prefix"`
	Code        string          `gorm:"size:64;not null;index:idx_synergy_events_code" json:"code"`
	Seq         int64           `gorm:"not null" json:"seq"`
	EventType   string          `gorm:"size:16;not null;index:idx_synergy_events_type" json:"event_type"`
	Meta        json.RawMessage `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_synergy_events_created_at" json:"created_at"`
}

func (SynergyIDEvent) TableName() string { return "synergy_id_events" }

// Synergy event type constants
const (
	SynergyEventMint  = "mint"
	SynergyEventSet   = "set"
	SynergyEventReset = "reset"
)

// SynergyIDEventFilter represents filter criteria for audit event queries
type SynergyIDEventFilter struct {
	Prefix    *string
	Code      *string
	POID      *uuid.UUID
	EventType *string
}

// IsCounterOverride reports whether the event mutated the counter without
// minting a ledger row.
func (e *SynergyIDEvent) IsCounterOverride() bool {
	return e.EventType == SynergyEventSet || e.EventType == SynergyEventReset
}
