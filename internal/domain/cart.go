package domain

import "time"

// CartLineItem is one (user, product) row of a cart joined with its product.
type CartLineItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	Product   Product   `json:"product"`
}

// LineTotal is quantity times the product's unit price.
func (l CartLineItem) LineTotal() Money {
	return l.Product.Price.MulInt(l.Quantity)
}
