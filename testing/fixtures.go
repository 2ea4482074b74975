// Package testing provides test utilities and database setup for testing the allocator
package testing

import (
	"encoding/json"
	"fmt"

	"github.com/synergydash/synergy-backend/models"
	"github.com/synergydash/synergy-backend/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestPurchaseOrder creates a purchase order row for event joins
func (tf *TestFixtures) CreateTestPurchaseOrder(poNumber string) (*models.PurchaseOrder, error) {
	po := &models.PurchaseOrder{
		ID:        uuid.New(),
		PONumber:  poNumber,
		CreatedAt: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(po).Error; err != nil {
		return nil, fmt.Errorf("failed to create test purchase order: %w", err)
	}
	return po, nil
}

// CreateTestCounter creates a prefix counter at the given next_seq
func (tf *TestFixtures) CreateTestCounter(prefix string, nextSeq int64) (*models.PrefixCounter, error) {
	now := utils.UTCNow()
	counter := &models.PrefixCounter{
		Prefix:    prefix,
		NextSeq:   nextSeq,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tf.DB.DB.Create(counter).Error; err != nil {
		return nil, fmt.Errorf("failed to create test counter: %w", err)
	}
	return counter, nil
}

// CreateTestMintedCode inserts a ledger row directly, bypassing the allocator
func (tf *TestFixtures) CreateTestMintedCode(prefix string, seq int64) (*models.SynergyCode, error) {
	code := &models.SynergyCode{
		Prefix:    prefix,
		Seq:       seq,
		Code:      models.FormatSynergyCode(prefix, seq),
		CreatedAt: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(code).Error; err != nil {
		return nil, fmt.Errorf("failed to create test minted code: %w", err)
	}
	return code, nil
}

// CreateTestMintedCodes inserts ledger rows for sequences 1..count
func (tf *TestFixtures) CreateTestMintedCodes(prefix string, count int64) ([]*models.SynergyCode, error) {
	codes := make([]*models.SynergyCode, 0, count)
	for seq := int64(1); seq <= count; seq++ {
		code, err := tf.CreateTestMintedCode(prefix, seq)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// CreateTestEvent inserts an audit event row directly
func (tf *TestFixtures) CreateTestEvent(prefix string, seq int64, eventType string, poID *uuid.UUID) (*models.SynergyIDEvent, error) {
	meta, _ := json.Marshal(map[string]any{"source": "fixture"})
	event := &models.SynergyIDEvent{
		ID:        uuid.New(),
		POID:      poID,
		Prefix:    prefix,
		Code:      models.FormatSynergyCode(prefix, seq),
		Seq:       seq,
		EventType: eventType,
		Meta:      meta,
		CreatedAt: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test event: %w", err)
	}
	return event, nil
}
