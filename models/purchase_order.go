package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseOrder is the minimal projection of the inventory system's PO table
// that the allocator needs: events reference a PO by id and the audit views
// display its human-facing number. The full PO lifecycle lives in the
// inventory service.
type PurchaseOrder struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PONumber  string    `gorm:"size:64;not null;index:idx_purchase_orders_po_number" json:"po_number"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

// PurchaseOrderFilter represents filter criteria for purchase order queries
type PurchaseOrderFilter struct {
	PONumber *string
}
