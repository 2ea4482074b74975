// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/synergydash/synergy-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrefixCounterRepositoryImpl implements PrefixCounterRepository interface
type PrefixCounterRepositoryImpl struct {
	*BaseRepository[models.PrefixCounter, models.PrefixCounterFilter]
}

// NewPrefixCounterRepository creates a new prefix counter repository
func NewPrefixCounterRepository(db *gorm.DB) PrefixCounterRepository {
	return &PrefixCounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PrefixCounter, models.PrefixCounterFilter](db),
	}
}

// ByPrefix finds a counter row without locking it
func (r *PrefixCounterRepositoryImpl) ByPrefix(ctx context.Context, prefix string) (*models.PrefixCounter, error) {
	db := r.getDB(ctx)
	var counter models.PrefixCounter
	err := db.Where("prefix = ?", prefix).Take(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find counter for prefix %s: %w", prefix, err)
	}
	return &counter, nil
}

// LockForUpdate reads the counter row under SELECT ... FOR UPDATE so the
// calling transaction is the only one that can observe or advance next_seq
// for this prefix until it commits. Counters for other prefixes are not
// contended. Returns nil when no row exists yet.
func (r *PrefixCounterRepositoryImpl) LockForUpdate(ctx context.Context, prefix string) (*models.PrefixCounter, error) {
	db := r.getDB(ctx)
	var counter models.PrefixCounter
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ?", prefix).
		Take(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock counter for prefix %s: %w", prefix, err)
	}
	return &counter, nil
}

// CreateIfAbsent inserts the counter row unless another transaction already
// created it. Two concurrent lazy creations race on the primary key; the
// loser simply sees zero affected rows and re-reads under lock.
func (r *PrefixCounterRepositoryImpl) CreateIfAbsent(ctx context.Context, counter *models.PrefixCounter) error {
	db := r.getDB(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}},
		DoNothing: true,
	}).Create(counter).Error
	if err != nil {
		return fmt.Errorf("failed to create counter for prefix %s: %w", counter.Prefix, err)
	}
	return nil
}

// UpdateNextSeq sets the counter pointer. Callers must hold the row lock.
func (r *PrefixCounterRepositoryImpl) UpdateNextSeq(ctx context.Context, prefix string, nextSeq int64) error {
	db := r.getDB(ctx)
	res := db.Model(&models.PrefixCounter{}).
		Where("prefix = ?", prefix).
		Updates(map[string]any{
			"next_seq":   nextSeq,
			"updated_at": gorm.Expr("(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update counter for prefix %s: %w", prefix, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("counter for prefix %s disappeared during update", prefix)
	}
	return nil
}

// List returns all counter rows ordered by prefix
func (r *PrefixCounterRepositoryImpl) List(ctx context.Context) ([]*models.PrefixCounter, error) {
	db := r.getDB(ctx)
	var counters []*models.PrefixCounter
	if err := db.Order("prefix ASC").Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	return counters, nil
}
