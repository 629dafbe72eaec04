package models

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID                  gocql.UUID       `json:"id" db:"product_id"`
	Name                string           `json:"name" db:"name"`
	Price               decimal.Decimal  `json:"price" db:"price"`
	OfferPrice          *decimal.Decimal `json:"offer_price,omitempty" db:"offer_price"`
	Stock               int              `json:"stock" db:"stock"`
	ShippingCost        decimal.Decimal  `json:"shipping_cost" db:"shipping_cost"`
	PerUnitShippingCost decimal.Decimal  `json:"per_unit_shipping_cost" db:"per_unit_shipping_cost"`
	CompanyID           gocql.UUID       `json:"company_id" db:"company_id"`
	IsActive            bool             `json:"is_active" db:"is_active"`
	CreatedAt           *time.Time       `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt           *time.Time       `json:"updated_at,omitempty" db:"updated_at"`
}

// EffectivePrice retourne le prix promo s'il est défini, sinon le prix catalogue.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.OfferPrice != nil {
		return *p.OfferPrice
	}
	return p.Price
}
