package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"

	"cedra_cart_service/internal/database"
	"cedra_cart_service/internal/models"
)

// ProductScylla consulte le catalogue dans le keyspace products.
// Lecture seule : le panier ne décrémente jamais le stock.
type ProductScylla struct{}

func NewProductScylla() *ProductScylla {
	return &ProductScylla{}
}

func (r *ProductScylla) FindByID(ctx context.Context, id gocql.UUID) (*models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, fmt.Errorf("connexion products: %w", err)
	}

	var (
		p          models.Product
		price      float64
		offerPrice float64
		hasOffer   bool
		shipping   float64
		perUnit    float64
	)
	err = session.Query(database.CQLProductByID, id).WithContext(ctx).Scan(
		&p.ID, &p.Name, &price, &offerPrice, &p.Stock, &shipping, &perUnit, &p.CompanyID, &p.IsActive)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %s: %w", id, err)
	}

	p.Price = decimal.NewFromFloat(price)
	p.ShippingCost = decimal.NewFromFloat(shipping)
	p.PerUnitShippingCost = decimal.NewFromFloat(perUnit)
	// offer_price à 0 = pas de prix promo (colonne non renseignée)
	hasOffer = offerPrice > 0
	if hasOffer {
		op := decimal.NewFromFloat(offerPrice)
		p.OfferPrice = &op
	}

	if !p.IsActive {
		return nil, nil
	}
	return &p, nil
}
