package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the single in-progress cart owned by a user
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one gold entry in a cart. TotalPrice is always
// Quantity × UnitPriceAtAdd × weight of the referenced gold.
type CartItem struct {
	ID             uuid.UUID       `json:"id"`
	CartID         uuid.UUID       `json:"cart_id"`
	GoldID         uuid.UUID       `json:"gold_id"`
	Quantity       int             `json:"quantity"`
	UnitPriceAtAdd decimal.Decimal `json:"unit_price_at_add"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Gold           *Gold           `json:"gold,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Reprice sets quantity and recomputes the stored totals from the live gold price.
func (i *CartItem) Reprice(quantity int, gold *Gold) {
	i.Quantity = quantity
	i.UnitPriceAtAdd = gold.PricePerGram
	i.TotalPrice = gold.LineTotal(quantity)
}

// Total sums the stored line totals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
