package services

import (
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/batch"
	"github.com/stretchr/testify/assert"
)

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		wantLevel deletion.RiskLevel
		wantBatch int
	}{
		{name: "small set", total: 9, wantLevel: deletion.RiskLow, wantBatch: 10},
		{name: "boundary of medium", total: 100, wantLevel: deletion.RiskMedium, wantBatch: 10},
		{name: "medium set", total: 150, wantLevel: deletion.RiskMedium, wantBatch: 15},
		{name: "boundary of high", total: 500, wantLevel: deletion.RiskHigh, wantBatch: 50},
		{name: "huge set clamps batch", total: 5000, wantLevel: deletion.RiskHigh, wantBatch: 100},
		{name: "empty", total: 0, wantLevel: deletion.RiskLow, wantBatch: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assessRisk(tt.total)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.total, got.TotalOrphaned)
			assert.Equal(t, tt.wantBatch, got.RecommendedBatchSize)
		})
	}
}

func TestFailedAt(t *testing.T) {
	errs := []batch.ItemError{
		{Index: 2, Error: "gone"},
		{Index: 7, Error: "also gone"},
	}

	assert.True(t, failedAt(errs, 2))
	assert.True(t, failedAt(errs, 7))
	assert.False(t, failedAt(errs, 0))
	assert.False(t, failedAt(nil, 2))
}
