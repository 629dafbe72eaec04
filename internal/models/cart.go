package models

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// Cart est l'agrégat panier. ID nil = panier pas encore persisté
// (créé en mémoire par le résolveur de session, sauvegardé à la
// première mutation seulement).
//
// Invariant : les quatre champs monétaires dérivés sont toujours
// recalculés ensemble, jamais individuellement.
type Cart struct {
	ID        *gocql.UUID `json:"id,omitempty"`
	UserID    *int64      `json:"user_id,omitempty"`
	SessionID *gocql.UUID `json:"session_id,omitempty"`
	Items     []CartItem  `json:"items"`
	Coupon    *Coupon     `json:"coupon,omitempty"`

	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalShippingCost decimal.Decimal `json:"total_shipping_cost"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem référence un produit du catalogue (référence non
// possédante : le produit peut disparaître entre deux mutations, le
// stock est donc revérifié à chaque opération).
type CartItem struct {
	ID        gocql.UUID `json:"id"`
	ProductID gocql.UUID `json:"product_id"`
	Quantity  int        `json:"quantity"`
	Product   *Product   `json:"product,omitempty"`
}

// FindItem retourne l'item portant cet identifiant, ou nil.
func (c *Cart) FindItem(itemID gocql.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByProduct retourne l'item référençant ce produit, ou nil.
// Au plus un item par produit distinct dans un panier.
func (c *Cart) FindItemByProduct(productID gocql.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveItem retire l'item du panier. Retourne false si absent.
func (c *Cart) RemoveItem(itemID gocql.UUID) bool {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}
