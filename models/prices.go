package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceSnapshot is a price observed on the market feed.
type PriceSnapshot struct {
	gorm.Model
	Symbol    string          `gorm:"index"`
	Price     decimal.Decimal `gorm:"type:numeric"`
	Timestamp time.Time       `gorm:"index"`
}
