package cart

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"cedra_cart_service/internal/models"
)

// Collaborateurs externes du cœur. Les implémentations Scylla/Redis
// vivent dans internal/repository ; les tests utilisent des doublures
// en mémoire. Convention : (nil, nil) quand l'entité n'existe pas,
// erreur non-nil seulement pour les pannes d'infrastructure.

// ProductFinder : consultation du catalogue (propriété externe,
// lecture seule depuis le panier).
type ProductFinder interface {
	FindByID(ctx context.Context, id gocql.UUID) (*models.Product, error)
}

// CartRepository : persistance des paniers. FindByOwnerKey charge
// items, produits référencés et coupon en une passe.
type CartRepository interface {
	FindByOwnerKey(ctx context.Context, key OwnerKey) (*models.Cart, error)
	Save(ctx context.Context, c *models.Cart) error
	Delete(ctx context.Context, c *models.Cart) error
	DeleteStaleSessionsOlderThan(ctx context.Context, threshold time.Time) (int, error)
}

// CouponRepository : persistance des coupons et de leur piste d'audit.
// WithCodeLock sérialise la rédemption à la granularité du code pour
// que deux requêtes concurrentes ne passent pas toutes deux le
// contrôle de plafond.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByCodeWithTrackings(ctx context.Context, code string) (*models.Coupon, error)
	WithCodeLock(ctx context.Context, code string, fn func() error) error
	SaveTracking(ctx context.Context, t *models.CouponTracking) error
}
