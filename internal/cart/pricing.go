package cart

import (
	"github.com/shopspring/decimal"

	"cedra_cart_service/internal/models"
)

// Moteur de tarification : fonctions pures sur la collection d'items
// et le coupon attaché, exécutées après chaque mutation et avant
// chaque lecture.

// Subtotal = Σ prixEffectif(produit) × quantité. Panier vide = zéro exact.
func Subtotal(items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for i := range items {
		if items[i].Product == nil {
			continue
		}
		line := items[i].Product.EffectivePrice().Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		sum = sum.Add(line)
	}
	return RoundMoney(sum)
}

// Shipping = Σ par ligne : coût de base + max(0, qté−1) × surcoût
// unitaire. Chaque ligne distincte paie son coût de base une fois ;
// pas de déduplication entre lignes.
func Shipping(items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for i := range items {
		if items[i].Product == nil || items[i].Quantity <= 0 {
			continue
		}
		extra := items[i].Quantity - 1
		line := items[i].Product.ShippingCost.Add(
			items[i].Product.PerUnitShippingCost.Mul(decimal.NewFromInt(int64(extra))))
		sum = sum.Add(line)
	}
	return RoundMoney(sum)
}

// Reprice recalcule les quatre champs monétaires dérivés du panier et
// les écrit en une seule fois — jamais partiellement. La remise est
// une ligne comptable séparée : elle ne réduit que TotalAmount, jamais
// SubtotalPrice. Pas d'écrêtage du total : un total négatif est un
// défaut de configuration coupon à corriger en amont.
func Reprice(c *models.Cart) {
	if len(c.Items) == 0 {
		c.SubtotalPrice = decimal.Zero
		c.TotalShippingCost = decimal.Zero
		c.TotalDiscount = decimal.Zero
		c.TotalAmount = decimal.Zero
		return
	}

	subtotal := Subtotal(c.Items)
	shipping := Shipping(c.Items)
	discount := decimal.Zero
	if c.Coupon != nil {
		discount = CalculateDiscount(c.Coupon, c.Items, subtotal)
	}

	c.SubtotalPrice = subtotal
	c.TotalShippingCost = shipping
	c.TotalDiscount = discount
	c.TotalAmount = subtotal.Add(shipping).Sub(discount)
}
