// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/synergydash/synergy-backend/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// PrefixCounterRepository defines operations for the per-prefix counter rows.
// LockForUpdate and CreateIfAbsent only make sense inside a transaction
// started with WithTransaction; the lock is released at commit/rollback.
type PrefixCounterRepository interface {
	ByPrefix(ctx context.Context, prefix string) (*models.PrefixCounter, error)
	LockForUpdate(ctx context.Context, prefix string) (*models.PrefixCounter, error)
	CreateIfAbsent(ctx context.Context, counter *models.PrefixCounter) error
	UpdateNextSeq(ctx context.Context, prefix string, nextSeq int64) error
	List(ctx context.Context) ([]*models.PrefixCounter, error)
}

// SynergyCodeRepository defines operations for the allocation ledger
type SynergyCodeRepository interface {
	Repository[models.SynergyCode, models.SynergyCodeFilter]
	ByCode(ctx context.Context, code string) (*models.SynergyCode, error)
	MaxSeqByPrefix(ctx context.Context, prefix string) (int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	StatsPerPrefix(ctx context.Context) ([]*models.PrefixMintStats, error)
}

// SynergyIDEventRepository defines operations for the audit event stream
type SynergyIDEventRepository interface {
	Save(ctx context.Context, event *models.SynergyIDEvent) error
	List(ctx context.Context, filter models.SynergyIDEventFilter, limit, offset int) ([]*SynergyIDEventWithPO, error)
	CountByPrefixAndType(ctx context.Context, prefix, eventType string) (int64, error)
}

// PurchaseOrderRepository defines operations for the PO context projection
type PurchaseOrderRepository interface {
	Save(ctx context.Context, po *models.PurchaseOrder) error
	ByUUID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
}
