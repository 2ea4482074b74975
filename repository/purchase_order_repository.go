// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/synergydash/synergy-backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseOrderRepositoryImpl implements PurchaseOrderRepository interface
type PurchaseOrderRepositoryImpl struct {
	*BaseRepository[models.PurchaseOrder, models.PurchaseOrderFilter]
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &PurchaseOrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PurchaseOrder, models.PurchaseOrderFilter](db),
	}
}

// ByUUID finds a purchase order by its id
func (r *PurchaseOrderRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	db := r.getDB(ctx)
	var po models.PurchaseOrder
	err := db.Where("id = ?", id).Take(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find purchase order %s: %w", id, err)
	}
	return &po, nil
}
