package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cedra_cart_service/internal/models"
)

// ValidateCoupon vérifie l'éligibilité d'un code coupon pour cet
// appelant et ce contenu de panier. Premier contrôle en échec gagne :
//
//  1. le code doit résoudre un coupon existant
//  2. coupon actif et instant courant dans [StartsAt, ExpiresAt]
//  3. plafond global : rédemptions < MaxUses (si défini)
//  4. plafond personnel : rédemptions de l'appelant < MaxUsesPerUser
//     (si appelant et plafond définis)
//  5. éligibilité par catégorie (GENERAL / COMPANY_SPECIFIC /
//     PRODUCT_SPECIFIC)
//
// Retourne le coupon résolu ; l'appelant l'attache ensuite au panier.
func (s *Service) ValidateCoupon(ctx context.Context, code string, userID *int64, items []models.CartItem) (*models.Coupon, error) {
	coupon, err := s.coupons.FindByCodeWithTrackings(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	now := s.now()
	if !coupon.IsActive || now.Before(coupon.StartsAt) || now.After(coupon.ExpiresAt) {
		return nil, ErrCouponExpired
	}

	if coupon.MaxUses > 0 && coupon.UsedCount() >= coupon.MaxUses {
		return nil, ErrCouponLimitExceeded
	}

	if userID != nil && coupon.MaxUsesPerUser > 0 &&
		coupon.UsedCountByUser(*userID) >= coupon.MaxUsesPerUser {
		return nil, ErrCouponLimitExceeded
	}

	switch coupon.Category {
	case models.CategoryCompanySpecific:
		companies := coupon.TrackedCompanies()
		for i := range items {
			if items[i].Product == nil || !companies[items[i].Product.CompanyID] {
				return nil, ErrCouponInvalid
			}
		}
	case models.CategoryProductSpecific:
		products := coupon.TrackedProducts()
		for i := range items {
			if !products[items[i].ProductID] {
				return nil, ErrCouponInvalid
			}
		}
	}

	return coupon, nil
}

// CalculateDiscount calcule le montant de la remise.
//
// PERCENTAGE : base × valeur / 100, arrondi monétaire.
// FIXED : montant configuré, plafonné à la base (jamais plus que ce
// que vaut la commande).
//
// La portée détermine la base : ORDER prend le sous-total entier,
// ITEM ne prend que la contribution des lignes éligibles.
func CalculateDiscount(coupon *models.Coupon, items []models.CartItem, subtotal decimal.Decimal) decimal.Decimal {
	base := subtotal
	if coupon.Scope == models.ScopeItem {
		base = eligibleSubtotal(coupon, items)
	}

	switch coupon.Type {
	case models.TypePercentage:
		return Percentage(base, coupon.Value)
	case models.TypeFixed:
		return RoundMoney(MinMoney(coupon.Value, base))
	}
	return decimal.Zero
}

// eligibleSubtotal : contribution au sous-total des seules lignes
// couvertes par le coupon.
func eligibleSubtotal(coupon *models.Coupon, items []models.CartItem) decimal.Decimal {
	var eligible []models.CartItem
	switch coupon.Category {
	case models.CategoryProductSpecific:
		products := coupon.TrackedProducts()
		for i := range items {
			if products[items[i].ProductID] {
				eligible = append(eligible, items[i])
			}
		}
	case models.CategoryCompanySpecific:
		companies := coupon.TrackedCompanies()
		for i := range items {
			if items[i].Product != nil && companies[items[i].Product.CompanyID] {
				eligible = append(eligible, items[i])
			}
		}
	default:
		eligible = items
	}
	return Subtotal(eligible)
}

// WithinWindow indique si le coupon est utilisable à cet instant
// (affichage côté admin, indépendant des plafonds).
func WithinWindow(coupon *models.Coupon, at time.Time) bool {
	return coupon.IsActive && !at.Before(coupon.StartsAt) && !at.After(coupon.ExpiresAt)
}
