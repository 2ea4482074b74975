// Package models contains domain entities and business models for the Synergy ID allocator
package models

import (
	"time"

	"github.com/google/uuid"
)

// SynergyCode is one row of the allocation ledger: a minted identifier.
// Rows are append-only, immutable, and never deleted; the unique index on
// (prefix, seq) is what makes a duplicate mint structurally impossible to
// persist. The PO/inventory linkage is owned by the caller, not the
// allocator.
type SynergyCode struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Prefix      string     `gorm:"size:32;not null;uniqueIndex:idx_synergy_codes_prefix_seq,priority:1" json:"prefix"`
	Seq         int64      `gorm:"not null;uniqueIndex:idx_synergy_codes_prefix_seq,priority:2" json:"seq"`
	Code        string     `gorm:"size:64;not null;index:idx_synergy_codes_code" json:"code"`
	POID        *uuid.UUID `gorm:"type:uuid;index:idx_synergy_codes_po_id" json:"po_id,omitempty"`
	POLineID    *uuid.UUID `gorm:"type:uuid" json:"po_line_id,omitempty"`
	InventoryID *uuid.UUID `gorm:"type:uuid" json:"inventory_id,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_synergy_codes_created_at" json:"created_at"`
}

func (SynergyCode) TableName() string { return "synergy_codes" }

// SynergyCodeFilter represents filter criteria for ledger queries
type SynergyCodeFilter struct {
	Prefix *string
	Seq    *int64
	Code   *string
	POID   *uuid.UUID
}

// PrefixMintStats is the per-prefix ledger aggregate backing the overview.
type PrefixMintStats struct {
	Prefix       string     `json:"prefix"`
	MintedCount  int64      `json:"minted_count"`
	MaxMintedSeq int64      `json:"max_minted_seq"`
	LastMintedAt *time.Time `json:"last_minted_at"`
}
