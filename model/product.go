package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Price      decimal.Decimal  `json:"price"`
	MinPrice   *decimal.Decimal `json:"min_price,omitempty"`  // Nullable
	CreatedAt  *time.Time       `json:"created_at,omitempty"` // Nullable
	ViewsCount int              `json:"views_count"`
}
