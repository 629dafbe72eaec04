package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cedra_cart_service/internal/models"
)

// Service orchestre résolution de session, fusion des lignes,
// tarification et coupons au-dessus des dépôts. Une requête = un
// appel séquentiel ; aucune primitive de concurrence ici, la
// rédemption de coupon est sérialisée par WithCodeLock côté dépôt.
type Service struct {
	products  ProductFinder
	carts     CartRepository
	coupons   CouponRepository
	retention time.Duration
	now       func() time.Time
}

func NewService(products ProductFinder, carts CartRepository, coupons CouponRepository, retention time.Duration) *Service {
	return &Service{
		products:  products,
		carts:     carts,
		coupons:   coupons,
		retention: retention,
		now:       time.Now,
	}
}

// ======================= RÉSOLUTION =======================

// Resolve charge le panier du propriétaire, ou en construit un neuf
// en mémoire (id nil, champs monétaires à zéro) SANS écrire en base.
// La persistance est paresseuse : première mutation seulement. Une
// lecture pure ne provoque jamais d'écriture.
func (s *Service) Resolve(ctx context.Context, key OwnerKey) (*models.Cart, error) {
	if key.UserID == nil && key.SessionID == nil {
		return nil, fmt.Errorf("%w : clé propriétaire manquante", ErrBadRequest)
	}

	c, err := s.carts.FindByOwnerKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if c != nil {
		Reprice(c)
		return c, nil
	}

	return &models.Cart{
		UserID:            key.UserID,
		SessionID:         key.SessionID,
		Items:             []models.CartItem{},
		SubtotalPrice:     decimal.Zero,
		TotalShippingCost: decimal.Zero,
		TotalDiscount:     decimal.Zero,
		TotalAmount:       decimal.Zero,
		UpdatedAt:         s.now(),
	}, nil
}

// GetCart : lecture tarifée du panier, zéro écriture.
func (s *Service) GetCart(ctx context.Context, key OwnerKey) (*models.Cart, error) {
	return s.Resolve(ctx, key)
}

// ======================= MUTATIONS =======================

// AddItem ajoute une quantité d'un produit. Fusion additive : si une
// ligne existe déjà pour ce produit, le nouveau total est
// existant + demandé et le stock est validé contre ce total.
func (s *Service) AddItem(ctx context.Context, key OwnerKey, productID string, quantity int) (*models.Cart, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w : identifiant produit requis", ErrBadRequest)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w : la quantité doit être un entier positif", ErrBadRequest)
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w : identifiant produit malformé", ErrBadRequest)
	}

	c, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	// Le produit est relu à chaque mutation : son cycle de vie est
	// indépendant du panier, le stock ne se met jamais en cache.
	product, err := s.products.FindByID(ctx, gocql.UUID(pid))
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if existing := c.FindItemByProduct(gocql.UUID(pid)); existing != nil {
		newTotal := existing.Quantity + quantity
		if err := EnsureAvailable(product, newTotal); err != nil {
			return nil, err
		}
		existing.Quantity = newTotal
		existing.Product = product
	} else {
		if err := EnsureAvailable(product, quantity); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, models.CartItem{
			ID:        gocql.UUID(uuid.New()),
			ProductID: gocql.UUID(pid),
			Quantity:  quantity,
			Product:   product,
		})
	}

	return c, s.repriceAndSave(ctx, c)
}

// UpdateQuantity fixe la quantité absolue d'une ligne. Quantité 0 :
// la ligne est retirée — aucun item à quantité nulle n'est jamais
// persisté.
func (s *Service) UpdateQuantity(ctx context.Context, key OwnerKey, itemID string, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w : quantité négative", ErrBadRequest)
	}
	iid, err := uuid.Parse(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w : identifiant d'article malformé", ErrBadRequest)
	}

	c, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	item := c.FindItem(gocql.UUID(iid))
	if item == nil {
		return nil, ErrCartItemNotFound
	}

	// Le produit est résolu avant toute branche, y compris la
	// suppression par quantité 0 : une ligne dont le produit a disparu
	// se retire via RemoveItem, pas via une mise à jour de quantité.
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if quantity == 0 {
		c.RemoveItem(item.ID)
		return c, s.repriceAndSave(ctx, c)
	}

	// Validation absolue contre la nouvelle quantité, pas le delta.
	if err := EnsureAvailable(product, quantity); err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Product = product
	return c, s.repriceAndSave(ctx, c)
}

// RemoveItem retire une ligne. Pas de contrôle de stock à la
// suppression. Retirer une ligne absente est une erreur, y compris
// au second appel pour le même id.
func (s *Service) RemoveItem(ctx context.Context, key OwnerKey, itemID string) (*models.Cart, error) {
	iid, err := uuid.Parse(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w : identifiant d'article malformé", ErrBadRequest)
	}

	c, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if !c.RemoveItem(gocql.UUID(iid)) {
		return nil, ErrCartItemNotFound
	}
	return c, s.repriceAndSave(ctx, c)
}

// ClearCart vide la collection d'items. Le coupon attaché n'est pas
// détaché pour autant ; l'invariant panier-vide ramène de toute façon
// les quatre champs monétaires à zéro.
func (s *Service) ClearCart(ctx context.Context, key OwnerKey) (*models.Cart, error) {
	c, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	c.Items = []models.CartItem{}
	return c, s.repriceAndSave(ctx, c)
}

// ======================= COUPONS =======================

// ApplyCoupon valide le code pour ce panier, l'attache, retarife et
// persiste. Exige un panier déjà persisté. La validation et la
// consommation de la rédemption se font sous verrou à la granularité
// du code coupon : le tracking est écrit marqué utilisé, et les
// plafonds (global et personnel) avancent dès cet instant.
//
// Ré-appliquer le code déjà attaché ne consomme pas de rédemption
// supplémentaire : la remise courante est simplement retournée.
func (s *Service) ApplyCoupon(ctx context.Context, key OwnerKey, code string) (decimal.Decimal, error) {
	if code == "" {
		return decimal.Zero, fmt.Errorf("%w : code coupon requis", ErrBadRequest)
	}

	c, err := s.carts.FindByOwnerKey(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if c == nil {
		return decimal.Zero, ErrCartNotFound
	}

	if c.Coupon != nil && c.Coupon.Code == code {
		Reprice(c)
		return c.TotalDiscount, nil
	}

	var discount decimal.Decimal
	err = s.coupons.WithCodeLock(ctx, code, func() error {
		coupon, err := s.ValidateCoupon(ctx, code, key.UserID, c.Items)
		if err != nil {
			return err
		}

		c.Coupon = coupon
		Reprice(c)
		discount = c.TotalDiscount

		usedAt := s.now()
		tracking := &models.CouponTracking{
			ID:       gocql.UUID(uuid.New()),
			CouponID: coupon.ID,
			UserID:   key.UserID,
			Used:     true,
			UsedAt:   &usedAt,
		}
		if err := s.coupons.SaveTracking(ctx, tracking); err != nil {
			return err
		}
		return s.save(ctx, c)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return discount, nil
}

// RemoveCoupon détache le coupon et remet la remise à zéro.
// Idempotent : sans coupon attaché, c'est un no-op, pas une erreur.
func (s *Service) RemoveCoupon(ctx context.Context, key OwnerKey) (*models.Cart, error) {
	c, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Coupon == nil {
		return c, nil
	}
	c.Coupon = nil
	return c, s.repriceAndSave(ctx, c)
}

// ======================= FUSION À LA CONNEXION =======================

// MergeOnLogin replie le panier de session anonyme dans le panier de
// l'utilisateur authentifié. Fusion au mieux : un produit disparu ou
// une quantité combinée au-dessus du stock fait sauter la ligne
// silencieusement (jamais d'application partielle), un coupon qui ne
// se revalide pas est abandonné sans erreur. Une mauvaise ligne de
// panier anonyme ne doit jamais faire échouer la connexion.
//
// Les abandons sont retournés comme liste de raisons pour journal
// optionnel, pas avalés sans trace. Le panier fusionné est sauvegardé
// une seule fois en fin d'opération ; le panier anonyme est supprimé
// que tout ait fusionné ou non.
func (s *Service) MergeOnLogin(ctx context.Context, sessionKey, userKey OwnerKey) (*models.Cart, []string, error) {
	if sessionKey.SessionID == nil || userKey.UserID == nil {
		return nil, nil, fmt.Errorf("%w : fusion requiert une session anonyme et un utilisateur", ErrBadRequest)
	}

	anon, err := s.carts.FindByOwnerKey(ctx, sessionKey)
	if err != nil {
		return nil, nil, err
	}

	userCart, err := s.Resolve(ctx, userKey)
	if err != nil {
		return nil, nil, err
	}

	// Pas de panier anonyme : rien à fusionner, on s'assure juste que
	// le panier utilisateur est persisté tel quel.
	if anon == nil {
		Reprice(userCart)
		if err := s.save(ctx, userCart); err != nil {
			return nil, nil, err
		}
		return userCart, nil, nil
	}

	var skipped []string
	for i := range anon.Items {
		it := anon.Items[i]
		product, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if product == nil {
			skipped = append(skipped, fmt.Sprintf("produit introuvable : %s", it.ProductID))
			continue
		}

		newTotal := it.Quantity
		existing := userCart.FindItemByProduct(it.ProductID)
		if existing != nil {
			newTotal += existing.Quantity
		}
		if err := EnsureAvailable(product, newTotal); err != nil {
			skipped = append(skipped, fmt.Sprintf("stock insuffisant : %s (demandé: %d, disponible: %d)",
				product.Name, newTotal, product.Stock))
			continue
		}

		if existing != nil {
			existing.Quantity = newTotal
			existing.Product = product
		} else {
			userCart.Items = append(userCart.Items, models.CartItem{
				ID:        gocql.UUID(uuid.New()),
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Product:   product,
			})
		}
	}

	// Le coupon anonyme est revalidé dans le contexte utilisateur. Un
	// coupon déjà attaché au panier utilisateur a priorité.
	if anon.Coupon != nil && userCart.Coupon == nil {
		coupon, err := s.ValidateCoupon(ctx, anon.Coupon.Code, userKey.UserID, userCart.Items)
		switch {
		case err == nil:
			userCart.Coupon = coupon
		case isBusinessErr(err):
			skipped = append(skipped, fmt.Sprintf("coupon abandonné : %s (%v)", anon.Coupon.Code, err))
		default:
			return nil, nil, err
		}
	}

	Reprice(userCart)
	if err := s.save(ctx, userCart); err != nil {
		return nil, nil, err
	}
	if err := s.carts.Delete(ctx, anon); err != nil {
		return nil, nil, err
	}
	return userCart, skipped, nil
}

// ======================= ENTRETIEN =======================

// PurgeStaleSessions supprime les paniers de session sans utilisateur
// dont la dernière modification dépasse la fenêtre de rétention. Seul
// comportement piloté par le temps du cœur.
func (s *Service) PurgeStaleSessions(ctx context.Context) (int, error) {
	return s.carts.DeleteStaleSessionsOlderThan(ctx, s.now().Add(-s.retention))
}

// ======================= INTERNES =======================

func (s *Service) repriceAndSave(ctx context.Context, c *models.Cart) error {
	Reprice(c)
	return s.save(ctx, c)
}

func (s *Service) save(ctx context.Context, c *models.Cart) error {
	c.UpdatedAt = s.now()
	return s.carts.Save(ctx, c)
}

// isBusinessErr distingue les issues métier attendues des pannes
// d'infrastructure : seules les premières se dégradent en abandon
// silencieux pendant la fusion.
func isBusinessErr(err error) bool {
	for _, sentinel := range []error{
		ErrBadRequest, ErrProductNotFound, ErrCartItemNotFound, ErrCartNotFound,
		ErrInsufficientStock, ErrCouponNotFound, ErrCouponExpired,
		ErrCouponInvalid, ErrCouponLimitExceeded,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
