package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gold represents a gold item in the catalog
type Gold struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Weight       decimal.Decimal `json:"weight" db:"weight"`
	PricePerGram decimal.Decimal `json:"price_per_gram" db:"price_per_gram"`
	Stock        int             `json:"stock" db:"stock"`
	Description  string          `json:"description,omitempty" db:"description"`
	ImageURL     string          `json:"image_url,omitempty" db:"image_url"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// UnitPrice is the price of one piece at the current price per gram.
func (g *Gold) UnitPrice() decimal.Decimal {
	return g.PricePerGram.Mul(g.Weight)
}

// LineTotal returns quantity × price per gram × weight using the live catalog price.
func (g *Gold) LineTotal(quantity int) decimal.Decimal {
	return LineTotal(quantity, g.PricePerGram, g.Weight)
}

// LineTotal computes quantity × pricePerGram × weight.
func LineTotal(quantity int, pricePerGram, weight decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(quantity)).Mul(pricePerGram).Mul(weight)
}

// Validate checks the catalog invariants of a gold item.
func (g *Gold) Validate() error {
	if g.Title == "" {
		return NewValidationError("title", "is required")
	}
	if !g.Weight.IsPositive() {
		return NewValidationError("weight", "must be greater than 0")
	}
	if !g.PricePerGram.IsPositive() {
		return NewValidationError("price_per_gram", "must be greater than 0")
	}
	if g.Stock < 0 {
		return NewValidationError("stock", "must not be negative")
	}
	return nil
}
