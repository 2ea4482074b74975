package models

import (
	"fmt"
	"time"
)

// PrefixCounter stores the next sequence value to hand out for one prefix.
// The row is created lazily on first use and never deleted while ledger or
// event rows reference the prefix. next_seq must always stay strictly above
// the highest minted sequence for the prefix.
type PrefixCounter struct {
	Prefix    string    `gorm:"primaryKey;size:32" json:"prefix"`
	NextSeq   int64     `gorm:"not null;check:next_seq >= 1" json:"next_seq"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (PrefixCounter) TableName() string { return "id_prefix_counters" }

// PrefixCounterFilter represents filter criteria for counter queries
type PrefixCounterFilter struct {
	Prefix *string
}

// SynergyCodeMinPad is the minimum zero-pad width of the sequence part of a
// code. It is a minimum, not a cap: sequences beyond 9999 render in full.
const SynergyCodeMinPad = 4

// FormatSynergyCode renders the externally visible identifier for a
// prefix/sequence pair, e.g. ("LAP", 7) -> "LAP-0007". Label printing and PO
// line matching depend on this exact format.
func FormatSynergyCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, SynergyCodeMinPad, seq)
}
