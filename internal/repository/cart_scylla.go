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

// CartScylla persiste les paniers dans le keyspace carts :
//
//	carts            — agrégat (cart_id PK)
//	carts_by_user    — index propriétaire utilisateur
//	carts_by_session — index propriétaire session anonyme
//	cart_items       — lignes (cart_id PK, item_id clustering)
//
// Le chargement est complet : items, produits référencés et coupon
// (avec trackings) en une passe.
type CartScylla struct {
	products cart.ProductFinder
	coupons  cart.CouponRepository
}

func NewCartScylla(products cart.ProductFinder, coupons cart.CouponRepository) *CartScylla {
	return &CartScylla{products: products, coupons: coupons}
}

func (r *CartScylla) FindByOwnerKey(ctx context.Context, key cart.OwnerKey) (*models.Cart, error) {
	session, err := database.GetCartsSession()
	if err != nil {
		return nil, fmt.Errorf("connexion carts: %w", err)
	}

	var cartID gocql.UUID
	switch {
	case key.UserID != nil:
		err = session.Query(database.CQLCartByUser, *key.UserID).
			WithContext(ctx).Scan(&cartID)
	case key.SessionID != nil:
		err = session.Query(database.CQLCartBySession, *key.SessionID).
			WithContext(ctx).Scan(&cartID)
	default:
		return nil, nil
	}
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("résolution panier: %w", err)
	}

	return r.loadCart(ctx, session, cartID)
}

func (r *CartScylla) loadCart(ctx context.Context, session *gocql.Session, cartID gocql.UUID) (*models.Cart, error) {
	var (
		c          models.Cart
		userID     int64
		sessionID  gocql.UUID
		couponCode string
		subtotal, shipping, discount, total float64
	)
	err := session.Query(`SELECT user_id, session_id, coupon_code, subtotal, shipping, discount, total, updated_at
		FROM carts WHERE cart_id = ?`, cartID).WithContext(ctx).Scan(
		&userID, &sessionID, &couponCode, &subtotal, &shipping, &discount, &total, &c.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		// index orphelin : le panier a été supprimé entre-temps
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture panier %s: %w", cartID, err)
	}

	id := cartID
	c.ID = &id
	if userID != 0 {
		uid := userID
		c.UserID = &uid
	}
	var zero gocql.UUID
	if sessionID != zero {
		sid := sessionID
		c.SessionID = &sid
	}
	c.SubtotalPrice = decimal.NewFromFloat(subtotal)
	c.TotalShippingCost = decimal.NewFromFloat(shipping)
	c.TotalDiscount = decimal.NewFromFloat(discount)
	c.TotalAmount = decimal.NewFromFloat(total)

	// Lignes + produits référencés (le produit peut avoir disparu :
	// la ligne garde alors un Product nil, revalidé à la mutation)
	iter := session.Query(`SELECT item_id, product_id, quantity FROM cart_items WHERE cart_id = ?`, cartID).
		WithContext(ctx).Iter()
	var itemID, productID gocql.UUID
	var quantity int
	for iter.Scan(&itemID, &productID, &quantity) {
		item := models.CartItem{ID: itemID, ProductID: productID, Quantity: quantity}
		product, err := r.products.FindByID(ctx, productID)
		if err != nil {
			iter.Close()
			return nil, err
		}
		item.Product = product
		c.Items = append(c.Items, item)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture lignes panier %s: %w", cartID, err)
	}

	if couponCode != "" {
		coupon, err := r.coupons.FindByCodeWithTrackings(ctx, couponCode)
		if err != nil {
			return nil, err
		}
		c.Coupon = coupon // nil si le coupon a été supprimé depuis
	}

	return &c, nil
}

// Save persiste l'agrégat entier : ligne carts, index propriétaire et
// réécriture des lignes. Assigne l'identifiant à la première
// sauvegarde (création paresseuse côté service).
func (r *CartScylla) Save(ctx context.Context, c *models.Cart) error {
	session, err := database.GetCartsSession()
	if err != nil {
		return fmt.Errorf("connexion carts: %w", err)
	}

	if c.ID == nil {
		id := gocql.UUID(uuid.New())
		c.ID = &id
	}

	var userID int64
	if c.UserID != nil {
		userID = *c.UserID
	}
	var sessionID gocql.UUID
	if c.SessionID != nil {
		sessionID = *c.SessionID
	}
	couponCode := ""
	if c.Coupon != nil {
		couponCode = c.Coupon.Code
	}

	subtotal, _ := c.SubtotalPrice.Float64()
	shipping, _ := c.TotalShippingCost.Float64()
	discount, _ := c.TotalDiscount.Float64()
	total, _ := c.TotalAmount.Float64()

	if err := session.Query(`INSERT INTO carts (cart_id, user_id, session_id, coupon_code, subtotal, shipping, discount, total, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		*c.ID, userID, sessionID, couponCode, subtotal, shipping, discount, total, c.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("écriture panier: %w", err)
	}

	if c.UserID != nil {
		if err := session.Query("INSERT INTO carts_by_user (user_id, cart_id) VALUES (?, ?)",
			*c.UserID, *c.ID).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("écriture index utilisateur: %w", err)
		}
	}
	if c.SessionID != nil {
		if err := session.Query("INSERT INTO carts_by_session (session_id, cart_id) VALUES (?, ?)",
			*c.SessionID, *c.ID).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("écriture index session: %w", err)
		}
	}

	// Réécriture des lignes : purge de la partition puis insertion
	if err := session.Query("DELETE FROM cart_items WHERE cart_id = ?", *c.ID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("purge lignes panier: %w", err)
	}
	for i := range c.Items {
		it := c.Items[i]
		if err := session.Query("INSERT INTO cart_items (cart_id, item_id, product_id, quantity) VALUES (?, ?, ?, ?)",
			*c.ID, it.ID, it.ProductID, it.Quantity).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("écriture ligne panier: %w", err)
		}
	}
	return nil
}

func (r *CartScylla) Delete(ctx context.Context, c *models.Cart) error {
	if c.ID == nil {
		return nil
	}
	session, err := database.GetCartsSession()
	if err != nil {
		return fmt.Errorf("connexion carts: %w", err)
	}

	if err := session.Query("DELETE FROM cart_items WHERE cart_id = ?", *c.ID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("suppression lignes: %w", err)
	}
	if c.UserID != nil {
		if err := session.Query("DELETE FROM carts_by_user WHERE user_id = ?", *c.UserID).
			WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("suppression index utilisateur: %w", err)
		}
	}
	if c.SessionID != nil {
		if err := session.Query("DELETE FROM carts_by_session WHERE session_id = ?", *c.SessionID).
			WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("suppression index session: %w", err)
		}
	}
	if err := session.Query("DELETE FROM carts WHERE cart_id = ?", *c.ID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	return nil
}

// DeleteStaleSessionsOlderThan purge les paniers de session anonymes
// dont la dernière modification précède le seuil. Balayage complet de
// la table carts : volumétrie faible, cadence quotidienne.
func (r *CartScylla) DeleteStaleSessionsOlderThan(ctx context.Context, threshold time.Time) (int, error) {
	session, err := database.GetCartsSession()
	if err != nil {
		return 0, fmt.Errorf("connexion carts: %w", err)
	}

	iter := session.Query(`SELECT cart_id, user_id, session_id, updated_at FROM carts`).
		WithContext(ctx).Iter()
	var (
		cartID, sessionID gocql.UUID
		userID            int64
		updatedAt         time.Time
		stale             []models.Cart
		zero              gocql.UUID
	)
	for iter.Scan(&cartID, &userID, &sessionID, &updatedAt) {
		if userID != 0 || sessionID == zero || !updatedAt.Before(threshold) {
			continue
		}
		id, sid := cartID, sessionID
		stale = append(stale, models.Cart{ID: &id, SessionID: &sid})
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("balayage paniers périmés: %w", err)
	}

	purged := 0
	for i := range stale {
		if err := r.Delete(ctx, &stale[i]); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

var _ cart.CartRepository = (*CartScylla)(nil)
var _ cart.ProductFinder = (*ProductScylla)(nil)
