package domain

import "time"

// LowStockThreshold is the stock level at or below which a product is flagged as running out.
const LowStockThreshold = 5

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Price         Money     `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	CategoryID    string    `json:"categoryId,omitempty"`
	ImageURL      string    `json:"imageUrl"`
	AgeRange      *string   `json:"ageRange,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SoldOut reports whether the product can no longer be added to a cart.
func (p Product) SoldOut() bool {
	return p.StockQuantity <= 0
}

// LowStock reports whether only a handful of units remain.
func (p Product) LowStock() bool {
	return p.StockQuantity > 0 && p.StockQuantity <= LowStockThreshold
}
