package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TakeCodeRequest carries the optional context a caller may attach to a mint.
// The prefix itself comes from the URL path.
type TakeCodeRequest struct {
	POID        *uuid.UUID `json:"po_id,omitempty" validate:"omitempty"`
	POLineID    *uuid.UUID `json:"po_line_id,omitempty" validate:"omitempty"`
	InventoryID *uuid.UUID `json:"inventory_id,omitempty" validate:"omitempty"`
	Actor       *string    `json:"actor,omitempty" validate:"omitempty,max=255"`
}

// TakeCodeResponse is the result of a successful mint
type TakeCodeResponse struct {
	Prefix string `json:"prefix"`
	Seq    int64  `json:"seq"`
	Code   string `json:"code"`
}

// SetNextSeqRequest is the manual counter override payload
type SetNextSeqRequest struct {
	Next   int64   `json:"next" validate:"required,gte=1"`
	Actor  *string `json:"actor,omitempty" validate:"omitempty,max=255"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=1024"`
}

// SetNextSeqResponse reports whether the override was applied. When the
// requested value would collide with an already minted code, Applied is
// false and SafeNext carries the smallest acceptable value.
type SetNextSeqResponse struct {
	Prefix   string `json:"prefix"`
	Applied  bool   `json:"applied"`
	NextSeq  int64  `json:"next_seq"`
	SafeNext *int64 `json:"safe_next,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ResetCounterRequest is the counter recovery payload
type ResetCounterRequest struct {
	Actor *string `json:"actor,omitempty" validate:"omitempty,max=255"`
}

// ResetCounterResponse reports the counter value after a reset
type ResetCounterResponse struct {
	Prefix  string `json:"prefix"`
	NextSeq int64  `json:"next_seq"`
}

// SynergyIDOverviewRow is one prefix's pointer plus its ledger stats
type SynergyIDOverviewRow struct {
	Prefix       string     `json:"prefix"`
	NextSeq      int64      `json:"next_seq"`
	NextCode     string     `json:"next_code"`
	MintedCount  int64      `json:"minted_count"`
	MaxMintedSeq *int64     `json:"max_minted_seq,omitempty"`
	LastMintedAt *time.Time `json:"last_minted_at,omitempty"`
}

// SynergyIDOverviewResponse backs the Synergy ID settings modal
type SynergyIDOverviewResponse struct {
	Items []SynergyIDOverviewRow `json:"items"`
}

// ListSynergyEventsRequest carries the audit log query parameters
type ListSynergyEventsRequest struct {
	Prefix *string    `json:"prefix,omitempty"`
	Code   *string    `json:"code,omitempty"`
	POID   *uuid.UUID `json:"po_id,omitempty"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// SynergyEventDTO is one audit event prepared for display
type SynergyEventDTO struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	ActorName   *string         `json:"actor_name,omitempty"`
	POID        *string         `json:"po_id,omitempty"`
	POLineID    *string         `json:"po_line_id,omitempty"`
	InventoryID *string         `json:"inventory_id,omitempty"`
	Prefix      string          `json:"prefix"`
	Code        string          `json:"code"`
	Seq         int64           `json:"seq"`
	EventType   string          `json:"event_type"`
	Meta        json.RawMessage `json:"meta"`
	PONumber    *string         `json:"po_number,omitempty"`
}

// ListSynergyEventsResponse is the paginated audit log
type ListSynergyEventsResponse struct {
	Items []SynergyEventDTO `json:"items"`
}
