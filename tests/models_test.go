// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/synergydash/synergy-backend/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatSynergyCode(t *testing.T) {
	t.Run("PadsToFourDigits", func(t *testing.T) {
		assert.Equal(t, "LAP-0001", models.FormatSynergyCode("LAP", 1))
		assert.Equal(t, "LAP-0007", models.FormatSynergyCode("LAP", 7))
		assert.Equal(t, "LAP-0042", models.FormatSynergyCode("LAP", 42))
		assert.Equal(t, "LAP-0999", models.FormatSynergyCode("LAP", 999))
		assert.Equal(t, "LAP-9999", models.FormatSynergyCode("LAP", 9999))
	})

	t.Run("PaddingIsMinimumNotCap", func(t *testing.T) {
		// Sequences beyond 9999 render in full, never truncated
		assert.Equal(t, "LAP-10000", models.FormatSynergyCode("LAP", 10000))
		assert.Equal(t, "LAP-123456", models.FormatSynergyCode("LAP", 123456))
	})

	t.Run("NumericPrefix", func(t *testing.T) {
		assert.Equal(t, "10001-0003", models.FormatSynergyCode("10001", 3))
	})
}

func TestSynergyIDEventIsCounterOverride(t *testing.T) {
	mint := &models.SynergyIDEvent{EventType: models.SynergyEventMint}
	set := &models.SynergyIDEvent{EventType: models.SynergyEventSet}
	reset := &models.SynergyIDEvent{EventType: models.SynergyEventReset}

	assert.False(t, mint.IsCounterOverride())
	assert.True(t, set.IsCounterOverride())
	assert.True(t, reset.IsCounterOverride())
}
