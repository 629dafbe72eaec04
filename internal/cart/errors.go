package cart

import "errors"

// Erreurs métier attendues. Les appelants les testent avec errors.Is ;
// la couche HTTP les mappe vers des codes de statut. Les erreurs
// d'infrastructure (I/O Scylla/Redis) restent distinctes : elles sont
// enveloppées avec %w et ne correspondent à aucune sentinelle ci-dessous.
var (
	ErrBadRequest        = errors.New("requête invalide")
	ErrProductNotFound   = errors.New("produit introuvable")
	ErrCartItemNotFound  = errors.New("article introuvable dans le panier")
	ErrCartNotFound      = errors.New("panier introuvable")
	ErrInsufficientStock = errors.New("stock insuffisant")

	ErrCouponNotFound      = errors.New("code coupon invalide")
	ErrCouponExpired       = errors.New("coupon inactif ou hors période de validité")
	ErrCouponInvalid       = errors.New("coupon non applicable à ce panier")
	ErrCouponLimitExceeded = errors.New("limite d'utilisation du coupon atteinte")
)
