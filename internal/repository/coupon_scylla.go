package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cedra_cart_service/internal/cart"
	"cedra_cart_service/internal/database"
	"cedra_cart_service/internal/models"
)

const (
	couponLockTTL   = 10 * time.Second
	couponLockRetry = 50 * time.Millisecond
)

// CouponScylla persiste coupons et trackings dans le keyspace carts.
// Le verrou de rédemption est un SetNX Redis à la granularité du code :
// Scylla n'offre pas de verrou pessimiste de ligne, et les chemins
// chauds du service passent déjà par Redis.
type CouponScylla struct{}

func NewCouponScylla() *CouponScylla {
	return &CouponScylla{}
}

func (r *CouponScylla) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	session, err := database.GetCartsSession()
	if err != nil {
		return nil, fmt.Errorf("connexion carts: %w", err)
	}
	return scanCoupon(ctx, session, code)
}

func (r *CouponScylla) FindByCodeWithTrackings(ctx context.Context, code string) (*models.Coupon, error) {
	session, err := database.GetCartsSession()
	if err != nil {
		return nil, fmt.Errorf("connexion carts: %w", err)
	}

	coupon, err := scanCoupon(ctx, session, code)
	if err != nil || coupon == nil {
		return coupon, err
	}

	iter := session.Query(`SELECT tracking_id, user_id, company_id, product_id, used, used_at
		FROM coupon_tracking WHERE coupon_id = ?`, coupon.ID).WithContext(ctx).Iter()
	var (
		trackingID gocql.UUID
		userID     int64
		companyID  gocql.UUID
		productID  gocql.UUID
		used       bool
		usedAt     time.Time
	)
	for iter.Scan(&trackingID, &userID, &companyID, &productID, &used, &usedAt) {
		t := models.CouponTracking{
			ID:       trackingID,
			CouponID: coupon.ID,
			Used:     used,
		}
		if userID != 0 {
			uid := userID
			t.UserID = &uid
		}
		var zero gocql.UUID
		if companyID != zero {
			cid := companyID
			t.CompanyID = &cid
		}
		if productID != zero {
			pid := productID
			t.ProductID = &pid
		}
		if !usedAt.IsZero() {
			at := usedAt
			t.UsedAt = &at
		}
		coupon.Trackings = append(coupon.Trackings, t)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture trackings %s: %w", code, err)
	}
	return coupon, nil
}

// WithCodeLock sérialise une section critique par code coupon. Deux
// requêtes concurrentes ne peuvent pas passer ensemble le contrôle de
// plafond pendant la rédemption.
func (r *CouponScylla) WithCodeLock(ctx context.Context, code string, fn func() error) error {
	key := "coupon_lock:" + code
	token := uuid.NewString()

	for {
		ok, err := database.Redis.SetNX(ctx, key, token, couponLockTTL).Result()
		if err != nil {
			return fmt.Errorf("verrou coupon %s: %w", code, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(couponLockRetry):
		}
	}
	defer func() {
		// Ne relâche que notre propre verrou (le TTL a pu expirer)
		if val, err := database.Redis.Get(context.Background(), key).Result(); err == nil && val == token {
			database.Redis.Del(context.Background(), key)
		}
	}()

	return fn()
}

func (r *CouponScylla) SaveTracking(ctx context.Context, t *models.CouponTracking) error {
	session, err := database.GetCartsSession()
	if err != nil {
		return fmt.Errorf("connexion carts: %w", err)
	}

	var userID int64
	if t.UserID != nil {
		userID = *t.UserID
	}
	var companyID, productID gocql.UUID
	if t.CompanyID != nil {
		companyID = *t.CompanyID
	}
	if t.ProductID != nil {
		productID = *t.ProductID
	}
	var usedAt time.Time
	if t.UsedAt != nil {
		usedAt = *t.UsedAt
	}

	if err := session.Query(`INSERT INTO coupon_tracking (coupon_id, tracking_id, user_id, company_id, product_id, used, used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.CouponID, t.ID, userID, companyID, productID, t.Used, usedAt).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("écriture tracking: %w", err)
	}
	return nil
}

func scanCoupon(ctx context.Context, session *gocql.Session, code string) (*models.Coupon, error) {
	var (
		cp    models.Coupon
		scope, category, ctype string
		value float64
	)
	err := session.Query(database.CQLCouponByCode, code).WithContext(ctx).Scan(
		&cp.ID, &cp.Code, &scope, &category, &ctype, &value,
		&cp.StartsAt, &cp.ExpiresAt, &cp.IsActive, &cp.MaxUses, &cp.MaxUsesPerUser,
		&cp.CreatedBy, &cp.CreatedAt, &cp.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture coupon %s: %w", code, err)
	}

	cp.Scope = models.CouponScope(scope)
	cp.Category = models.CouponCategory(category)
	cp.Type = models.CouponType(ctype)
	cp.Value = decimal.NewFromFloat(value)
	return &cp, nil
}

// compile-time : CouponScylla remplit le contrat du cœur
var _ cart.CouponRepository = (*CouponScylla)(nil)
