package database

import (
	"context"

	"grooby/market"
	"grooby/models"

	"gorm.io/gorm"
)

const snapshotBatchSize = 100

// PriceRecorder stores observed prices as price snapshots.
type PriceRecorder struct {
	db *gorm.DB
}

func NewPriceRecorder(db *gorm.DB) *PriceRecorder {
	return &PriceRecorder{db: db}
}

// Record implements market.SnapshotRecorder.
func (r *PriceRecorder) Record(ctx context.Context, snapshots []market.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([]models.PriceSnapshot, len(snapshots))
	for i, s := range snapshots {
		rows[i] = models.PriceSnapshot{Symbol: s.Symbol, Price: s.Price, Timestamp: s.At}
	}
	return CreateInBatches(r.db.WithContext(ctx), rows, snapshotBatchSize)
}

// History returns the recorded prices of symbol, newest first, at most limit rows.
func (r *PriceRecorder) History(ctx context.Context, symbol string, limit int) ([]models.PriceSnapshot, error) {
	var rows []models.PriceSnapshot
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
