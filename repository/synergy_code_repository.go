// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/synergydash/synergy-backend/models"
	"gorm.io/gorm"
)

// SynergyCodeRepositoryImpl implements SynergyCodeRepository interface
type SynergyCodeRepositoryImpl struct {
	*BaseRepository[models.SynergyCode, models.SynergyCodeFilter]
}

// NewSynergyCodeRepository creates a new allocation ledger repository
func NewSynergyCodeRepository(db *gorm.DB) SynergyCodeRepository {
	return &SynergyCodeRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SynergyCode, models.SynergyCodeFilter](db),
	}
}

// ByCode finds a ledger row by its formatted code
func (r *SynergyCodeRepositoryImpl) ByCode(ctx context.Context, code string) (*models.SynergyCode, error) {
	db := r.getDB(ctx)
	var row models.SynergyCode
	err := db.Where("code = ?", code).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ledger row for code %s: %w", code, err)
	}
	return &row, nil
}

// MaxSeqByPrefix returns the highest sequence ever minted for a prefix, or
// zero when nothing has been minted. This is what "safe next" derives from,
// independent of the mutable counter.
func (r *SynergyCodeRepositoryImpl) MaxSeqByPrefix(ctx context.Context, prefix string) (int64, error) {
	db := r.getDB(ctx)
	var maxSeq int64
	err := db.Model(&models.SynergyCode{}).
		Where("prefix = ?", prefix).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute max minted seq for prefix %s: %w", prefix, err)
	}
	return maxSeq, nil
}

// CountByPrefix returns the number of ledger rows for a prefix
func (r *SynergyCodeRepositoryImpl) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.SynergyCode{}).
		Where("prefix = ?", prefix).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger rows for prefix %s: %w", prefix, err)
	}
	return count, nil
}

// StatsPerPrefix aggregates the ledger per prefix in a single grouped query
func (r *SynergyCodeRepositoryImpl) StatsPerPrefix(ctx context.Context) ([]*models.PrefixMintStats, error) {
	db := r.getDB(ctx)
	var stats []*models.PrefixMintStats
	err := db.Model(&models.SynergyCode{}).
		Select("prefix, COUNT(*) AS minted_count, MAX(seq) AS max_minted_seq, MAX(created_at) AS last_minted_at").
		Group("prefix").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger stats: %w", err)
	}
	return stats, nil
}
