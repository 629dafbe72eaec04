package models

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

type CouponScope string

const (
	ScopeOrder CouponScope = "ORDER" // réduction sur toute la commande
	ScopeItem  CouponScope = "ITEM"  // réduction sur les lignes éligibles seulement
)

type CouponCategory string

const (
	CategoryGeneral         CouponCategory = "GENERAL"
	CategoryCompanySpecific CouponCategory = "COMPANY_SPECIFIC"
	CategoryProductSpecific CouponCategory = "PRODUCT_SPECIFIC"
)

type CouponType string

const (
	TypePercentage CouponType = "PERCENTAGE"
	TypeFixed      CouponType = "FIXED"
)

// Coupon. Le code est unique et sensible à la casse. Un coupon n'est
// utilisable que dans sa fenêtre d'activité, sous son plafond global
// et — si MaxUsesPerUser est défini — sous le plafond personnel de
// l'appelant.
type Coupon struct {
	ID             gocql.UUID      `json:"id"`
	Code           string          `json:"code"`
	Scope          CouponScope     `json:"scope"`
	Category       CouponCategory  `json:"category"`
	Type           CouponType      `json:"type"`
	Value          decimal.Decimal `json:"value"`
	StartsAt       time.Time       `json:"starts_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	IsActive       bool            `json:"is_active"`
	MaxUses        int             `json:"max_uses"`          // 0 = illimité
	MaxUsesPerUser int             `json:"max_uses_per_user"` // 0 = illimité
	Trackings      []CouponTracking `json:"trackings,omitempty"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CouponTracking : une ligne par rattachement (société ou produit
// éligible) ou par rédemption (Used=true). C'est la piste d'audit
// qui fait respecter les plafonds d'utilisation.
type CouponTracking struct {
	ID        gocql.UUID  `json:"id"`
	CouponID  gocql.UUID  `json:"coupon_id"`
	UserID    *int64      `json:"user_id,omitempty"`
	CompanyID *gocql.UUID `json:"company_id,omitempty"`
	ProductID *gocql.UUID `json:"product_id,omitempty"`
	Used      bool        `json:"used"`
	UsedAt    *time.Time  `json:"used_at,omitempty"`
}

// UsedCount compte les rédemptions effectives (plafond global).
func (cp *Coupon) UsedCount() int {
	n := 0
	for _, t := range cp.Trackings {
		if t.Used {
			n++
		}
	}
	return n
}

// UsedCountByUser compte les rédemptions effectives de cet utilisateur.
func (cp *Coupon) UsedCountByUser(userID int64) int {
	n := 0
	for _, t := range cp.Trackings {
		if t.Used && t.UserID != nil && *t.UserID == userID {
			n++
		}
	}
	return n
}

// TrackedCompanies liste les sociétés rattachées au coupon.
func (cp *Coupon) TrackedCompanies() map[gocql.UUID]bool {
	out := make(map[gocql.UUID]bool)
	for _, t := range cp.Trackings {
		if t.CompanyID != nil {
			out[*t.CompanyID] = true
		}
	}
	return out
}

// TrackedProducts liste les produits rattachés au coupon.
func (cp *Coupon) TrackedProducts() map[gocql.UUID]bool {
	out := make(map[gocql.UUID]bool)
	for _, t := range cp.Trackings {
		if t.ProductID != nil {
			out[*t.ProductID] = true
		}
	}
	return out
}
