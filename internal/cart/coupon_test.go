package cart

import (
	"context"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cedra_cart_service/internal/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func baseCoupon(code string) *models.Coupon {
	return &models.Coupon{
		ID:        gocql.UUID(uuid.New()),
		Code:      code,
		Scope:     models.ScopeOrder,
		Category:  models.CategoryGeneral,
		Type:      models.TypePercentage,
		Value:     dec("10"),
		StartsAt:  testNow.Add(-24 * time.Hour),
		ExpiresAt: testNow.Add(24 * time.Hour),
		IsActive:  true,
	}
}

func fixedCoupon(code, amount string) *models.Coupon {
	cp := baseCoupon(code)
	cp.Type = models.TypeFixed
	cp.Value = dec(amount)
	return cp
}

func usedTracking(cp *models.Coupon, userID *int64) models.CouponTracking {
	at := testNow.Add(-time.Hour)
	return models.CouponTracking{
		ID:       gocql.UUID(uuid.New()),
		CouponID: cp.ID,
		UserID:   userID,
		Used:     true,
		UsedAt:   &at,
	}
}

func validateWith(t *testing.T, cp *models.Coupon, userID *int64, items []models.CartItem) (*models.Coupon, error) {
	t.Helper()
	svc, env := newTestService(t)
	if cp != nil {
		env.coupons.byCode[cp.Code] = cp
	}
	code := "ABSENT"
	if cp != nil {
		code = cp.Code
	}
	return svc.ValidateCoupon(context.Background(), code, userID, items)
}

func TestValidateCouponNotFound(t *testing.T) {
	_, err := validateWith(t, nil, nil, nil)
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestValidateCouponInactive(t *testing.T) {
	cp := baseCoupon("OFF")
	cp.IsActive = false
	_, err := validateWith(t, cp, nil, nil)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestValidateCouponOutsideWindow(t *testing.T) {
	early := baseCoupon("EARLY")
	early.StartsAt = testNow.Add(time.Hour)
	_, err := validateWith(t, early, nil, nil)
	assert.ErrorIs(t, err, ErrCouponExpired)

	late := baseCoupon("LATE")
	late.ExpiresAt = testNow.Add(-time.Hour)
	_, err = validateWith(t, late, nil, nil)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestValidateCouponGlobalCap(t *testing.T) {
	cp := baseCoupon("CAP")
	cp.MaxUses = 2
	other := int64(99)
	cp.Trackings = []models.CouponTracking{
		usedTracking(cp, &other),
		usedTracking(cp, nil),
	}
	_, err := validateWith(t, cp, nil, nil)
	assert.ErrorIs(t, err, ErrCouponLimitExceeded)
}

func TestValidateCouponPerUserCap(t *testing.T) {
	// plafond personnel atteint, indépendamment du plafond global
	caller := int64(7)
	cp := baseCoupon("ONCE")
	cp.MaxUses = 100
	cp.MaxUsesPerUser = 1
	cp.Trackings = []models.CouponTracking{usedTracking(cp, &caller)}

	_, err := validateWith(t, cp, &caller, nil)
	assert.ErrorIs(t, err, ErrCouponLimitExceeded)

	// un autre utilisateur passe
	someone := int64(8)
	got, err := validateWith(t, cp, &someone, nil)
	require.NoError(t, err)
	assert.Equal(t, "ONCE", got.Code)
}

func TestValidateCouponAnonymousIgnoresPerUserCap(t *testing.T) {
	cp := baseCoupon("ONCE")
	cp.MaxUsesPerUser = 1
	other := int64(3)
	cp.Trackings = []models.CouponTracking{usedTracking(cp, &other)}

	_, err := validateWith(t, cp, nil, nil)
	assert.NoError(t, err)
}

func TestValidateCouponCompanySpecific(t *testing.T) {
	company := gocql.UUID(uuid.New())
	cp := baseCoupon("CORP")
	cp.Category = models.CategoryCompanySpecific
	cp.Trackings = []models.CouponTracking{{
		ID: gocql.UUID(uuid.New()), CouponID: cp.ID, CompanyID: &company,
	}}

	inside := newProduct("10", "0", "0", 10)
	inside.CompanyID = company
	outside := newProduct("10", "0", "0", 10)

	_, err := validateWith(t, cp, nil, []models.CartItem{newItem(inside, 1), newItem(outside, 1)})
	assert.ErrorIs(t, err, ErrCouponInvalid)

	got, err := validateWith(t, cp, nil, []models.CartItem{newItem(inside, 2)})
	require.NoError(t, err)
	assert.Equal(t, "CORP", got.Code)
}

func TestValidateCouponProductSpecific(t *testing.T) {
	covered := newProduct("10", "0", "0", 10)
	other := newProduct("10", "0", "0", 10)

	cp := baseCoupon("PROD")
	cp.Category = models.CategoryProductSpecific
	pid := covered.ID
	cp.Trackings = []models.CouponTracking{{
		ID: gocql.UUID(uuid.New()), CouponID: cp.ID, ProductID: &pid,
	}}

	_, err := validateWith(t, cp, nil, []models.CartItem{newItem(covered, 1), newItem(other, 1)})
	assert.ErrorIs(t, err, ErrCouponInvalid)

	_, err = validateWith(t, cp, nil, []models.CartItem{newItem(covered, 1)})
	assert.NoError(t, err)
}

func TestCalculateDiscountPercentage(t *testing.T) {
	cp := baseCoupon("TEN") // 10% ORDER
	p := newProduct("99.99", "0", "0", 10)
	items := []models.CartItem{newItem(p, 2)}
	subtotal := Subtotal(items) // 199.98

	got := CalculateDiscount(cp, items, subtotal)
	assert.True(t, got.Equal(dec("20.00")), "obtenu %s", got)
}

func TestCalculateDiscountFixedCappedAtSubtotal(t *testing.T) {
	cp := fixedCoupon("BIG", "500")
	p := newProduct("100", "0", "0", 10)
	items := []models.CartItem{newItem(p, 2)}

	got := CalculateDiscount(cp, items, dec("200"))
	assert.True(t, got.Equal(dec("200")), "la remise fixe est plafonnée au sous-total, obtenu %s", got)
}

func TestCalculateDiscountItemScope(t *testing.T) {
	covered := newProduct("50", "0", "0", 10)
	other := newProduct("100", "0", "0", 10)

	cp := baseCoupon("ITEM10") // 10%
	cp.Scope = models.ScopeItem
	cp.Category = models.CategoryProductSpecific
	pid := covered.ID
	cp.Trackings = []models.CouponTracking{{
		ID: gocql.UUID(uuid.New()), CouponID: cp.ID, ProductID: &pid,
	}}

	items := []models.CartItem{newItem(covered, 2), newItem(other, 1)}
	subtotal := Subtotal(items) // 200

	// seule la contribution des lignes couvertes (100) entre dans la base
	got := CalculateDiscount(cp, items, subtotal)
	assert.True(t, got.Equal(dec("10.00")), "obtenu %s", got)
}

func TestCalculateDiscountItemScopeFixed(t *testing.T) {
	covered := newProduct("30", "0", "0", 10)
	other := newProduct("100", "0", "0", 10)

	cp := fixedCoupon("ITEMFIX", "50")
	cp.Scope = models.ScopeItem
	cp.Category = models.CategoryProductSpecific
	pid := covered.ID
	cp.Trackings = []models.CouponTracking{{
		ID: gocql.UUID(uuid.New()), CouponID: cp.ID, ProductID: &pid,
	}}

	items := []models.CartItem{newItem(covered, 1), newItem(other, 1)}

	// plafonné à la contribution éligible (30), pas au sous-total (130)
	got := CalculateDiscount(cp, items, dec("130"))
	assert.True(t, got.Equal(dec("30")), "obtenu %s", got)
}

func TestWithinWindow(t *testing.T) {
	cp := baseCoupon("W")
	assert.True(t, WithinWindow(cp, testNow))
	assert.False(t, WithinWindow(cp, testNow.Add(48*time.Hour)))
	cp.IsActive = false
	assert.False(t, WithinWindow(cp, testNow))
}

func TestCalculateDiscountUnknownTypeIsZero(t *testing.T) {
	cp := baseCoupon("ODD")
	cp.Type = models.CouponType("FREE_SHIPPING")
	got := CalculateDiscount(cp, nil, dec("100"))
	assert.True(t, got.Equal(decimal.Zero))
}
