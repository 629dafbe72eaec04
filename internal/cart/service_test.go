package cart

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cedra_cart_service/internal/models"
)

// ======================= DOUBLURES =======================

type fakeProducts struct {
	byID map[gocql.UUID]*models.Product
}

func (f *fakeProducts) FindByID(_ context.Context, id gocql.UUID) (*models.Product, error) {
	return f.byID[id], nil
}

func (f *fakeProducts) add(p *models.Product) {
	f.byID[p.ID] = p
}

type fakeCarts struct {
	byKey   map[string]*models.Cart
	saves   int
	deletes int
}

func ownerOf(c *models.Cart) string {
	if c.UserID != nil {
		return "user:" + strconv.FormatInt(*c.UserID, 10)
	}
	if c.SessionID != nil {
		return "session:" + c.SessionID.String()
	}
	return ""
}

func (f *fakeCarts) FindByOwnerKey(_ context.Context, key OwnerKey) (*models.Cart, error) {
	return f.byKey[key.String()], nil
}

func (f *fakeCarts) Save(_ context.Context, c *models.Cart) error {
	if c.ID == nil {
		id := gocql.UUID(uuid.New())
		c.ID = &id
	}
	f.byKey[ownerOf(c)] = c
	f.saves++
	return nil
}

func (f *fakeCarts) Delete(_ context.Context, c *models.Cart) error {
	delete(f.byKey, ownerOf(c))
	f.deletes++
	return nil
}

func (f *fakeCarts) DeleteStaleSessionsOlderThan(_ context.Context, threshold time.Time) (int, error) {
	purged := 0
	for key, c := range f.byKey {
		if c.UserID == nil && c.SessionID != nil && c.UpdatedAt.Before(threshold) {
			delete(f.byKey, key)
			purged++
		}
	}
	return purged, nil
}

type fakeCoupons struct {
	byCode    map[string]*models.Coupon
	trackings []*models.CouponTracking
	locks     int
}

func (f *fakeCoupons) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	return f.byCode[code], nil
}

func (f *fakeCoupons) FindByCodeWithTrackings(_ context.Context, code string) (*models.Coupon, error) {
	cp := f.byCode[code]
	if cp == nil {
		return nil, nil
	}
	// reflète les trackings enregistrés depuis, comme le dépôt Scylla
	out := *cp
	out.Trackings = append([]models.CouponTracking{}, cp.Trackings...)
	for _, tr := range f.trackings {
		if tr.CouponID == cp.ID {
			out.Trackings = append(out.Trackings, *tr)
		}
	}
	return &out, nil
}

func (f *fakeCoupons) WithCodeLock(_ context.Context, _ string, fn func() error) error {
	f.locks++
	return fn()
}

func (f *fakeCoupons) SaveTracking(_ context.Context, t *models.CouponTracking) error {
	f.trackings = append(f.trackings, t)
	return nil
}

type testEnv struct {
	products *fakeProducts
	carts    *fakeCarts
	coupons  *fakeCoupons
}

func newTestService(t *testing.T) (*Service, *testEnv) {
	t.Helper()
	env := &testEnv{
		products: &fakeProducts{byID: make(map[gocql.UUID]*models.Product)},
		carts:    &fakeCarts{byKey: make(map[string]*models.Cart)},
		coupons:  &fakeCoupons{byCode: make(map[string]*models.Coupon)},
	}
	svc := NewService(env.products, env.carts, env.coupons, 90*24*time.Hour)
	svc.now = func() time.Time { return testNow }
	return svc, env
}

func sessionOwner(t *testing.T) OwnerKey {
	t.Helper()
	key, err := SessionKey(uuid.NewString())
	require.NoError(t, err)
	return key
}

func userOwner(t *testing.T, id int64) OwnerKey {
	t.Helper()
	key, err := UserKey(strconv.FormatInt(id, 10))
	require.NoError(t, err)
	return key
}

// ======================= CLÉS PROPRIÉTAIRE =======================

func TestOwnerKeyValidation(t *testing.T) {
	_, err := UserKey("abc")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = UserKey("-4")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = SessionKey("pas-un-uuid")
	assert.ErrorIs(t, err, ErrBadRequest)

	key, err := UserKey("42")
	require.NoError(t, err)
	assert.Equal(t, "user:42", key.String())
}

// ======================= LECTURE PARESSEUSE =======================

func TestGetCartLazyNeverWrites(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)

	c, err := svc.GetCart(context.Background(), key)
	require.NoError(t, err)

	assert.Nil(t, c.ID, "panier non persisté : pas d'identifiant")
	assert.Empty(t, c.Items)
	assert.True(t, c.SubtotalPrice.Equal(decimal.Zero))
	assert.True(t, c.TotalShippingCost.Equal(decimal.Zero))
	assert.True(t, c.TotalDiscount.Equal(decimal.Zero))
	assert.True(t, c.TotalAmount.Equal(decimal.Zero))
	assert.Zero(t, env.carts.saves, "une lecture pure ne provoque aucune écriture")
}

// ======================= FUSION DES LIGNES =======================

func TestAddItemMergesQuantities(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("100", "10", "1", 10)
	env.products.add(p)

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 2)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), key, p.ID.String(), 3)
	require.NoError(t, err)

	// fusion additive : une seule ligne, jamais deux
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("10", "0", "0", 5)
	env.products.add(p)

	_, err := svc.AddItem(context.Background(), key, "", 1)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = svc.AddItem(context.Background(), key, p.ID.String(), 0)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = svc.AddItem(context.Background(), key, p.ID.String(), -2)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = svc.AddItem(context.Background(), key, uuid.NewString(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, env.carts.saves, "aucune mutation partielle persistée")
}

func TestAddItemStockCeiling(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("10", "0", "0", 5)
	env.products.add(p)

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 3)
	require.NoError(t, err)

	// le total combiné (3+3) dépasse le stock : rien n'est appliqué
	_, err = svc.AddItem(context.Background(), key, p.ID.String(), 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	c, err := svc.GetCart(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity, "la quantité hors stock n'est jamais persistée")
}

func TestUpdateQuantityAbsolute(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("10", "0", "0", 5)
	env.products.add(p)

	c, err := svc.AddItem(context.Background(), key, p.ID.String(), 2)
	require.NoError(t, err)
	itemID := c.Items[0].ID.String()

	// validation absolue : 5 passe même si le delta (+3) aurait pu se
	// lire autrement
	c, err = svc.UpdateQuantity(context.Background(), key, itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Items[0].Quantity)

	_, err = svc.UpdateQuantity(context.Background(), key, itemID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p1 := newProduct("10", "0", "0", 5)
	p2 := newProduct("20", "0", "0", 5)
	env.products.add(p1)
	env.products.add(p2)

	_, err := svc.AddItem(context.Background(), key, p1.ID.String(), 1)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), key, p2.ID.String(), 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	itemID := c.Items[0].ID.String()

	c, err = svc.UpdateQuantity(context.Background(), key, itemID, 0)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1, "quantité 0 = suppression de la ligne")
}

func TestUpdateQuantityZeroStillChecksProduct(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("10", "0", "0", 5)
	env.products.add(p)

	c, err := svc.AddItem(context.Background(), key, p.ID.String(), 1)
	require.NoError(t, err)
	itemID := c.Items[0].ID.String()

	delete(env.products.byID, p.ID)

	// le produit est résolu avant la branche quantité 0 ; la ligne
	// orpheline se retire via RemoveItem
	_, err = svc.UpdateQuantity(context.Background(), key, itemID, 0)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.RemoveItem(context.Background(), key, itemID)
	assert.NoError(t, err)
}

func TestUpdateQuantityUnknownItem(t *testing.T) {
	svc, _ := newTestService(t)
	key := sessionOwner(t)

	_, err := svc.UpdateQuantity(context.Background(), key, uuid.NewString(), 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestRemoveItemTwiceFails(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("10", "0", "0", 5)
	env.products.add(p)

	c, err := svc.AddItem(context.Background(), key, p.ID.String(), 1)
	require.NoError(t, err)
	itemID := c.Items[0].ID.String()

	c, err = svc.RemoveItem(context.Background(), key, itemID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// la répétition n'est pas silencieusement idempotente
	_, err = svc.RemoveItem(context.Background(), key, itemID)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestClearCartKeepsCoupon(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)
	p := newProduct("100", "10", "1", 10)
	env.products.add(p)
	cp := fixedCoupon("KEEP", "5")
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), key, cp.Code)
	require.NoError(t, err)

	c, err := svc.ClearCart(context.Background(), key)
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.NotNil(t, c.Coupon, "vider le panier ne détache pas le coupon")
	assert.True(t, c.TotalAmount.Equal(decimal.Zero))
	assert.True(t, c.TotalDiscount.Equal(decimal.Zero))
}

// ======================= COUPONS =======================

func TestApplyCouponFixture(t *testing.T) {
	svc, env := newTestService(t)
	key := userOwner(t, 42)
	p := newProduct("100", "10", "1", 10)
	env.products.add(p)
	cp := fixedCoupon("PROMO20", "20")
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 2)
	require.NoError(t, err)

	discount, err := svc.ApplyCoupon(context.Background(), key, cp.Code)
	require.NoError(t, err)
	assert.True(t, discount.Equal(dec("20")))

	c, err := svc.GetCart(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, c.SubtotalPrice.Equal(dec("200")), "le sous-total reste pré-remise")
	assert.True(t, c.TotalShippingCost.Equal(dec("11")))
	assert.True(t, c.TotalDiscount.Equal(dec("20")))
	assert.True(t, c.TotalAmount.Equal(dec("191")))

	assert.Equal(t, 1, env.coupons.locks, "la rédemption passe sous verrou")
	require.Len(t, env.coupons.trackings, 1)
	tr := env.coupons.trackings[0]
	assert.Equal(t, cp.ID, tr.CouponID)
	require.NotNil(t, tr.UserID)
	assert.Equal(t, int64(42), *tr.UserID)
	assert.True(t, tr.Used, "la rédemption est consommée à l'application")
	require.NotNil(t, tr.UsedAt)
	assert.Equal(t, testNow, *tr.UsedAt)
}

func TestApplyCouponConsumesGlobalCap(t *testing.T) {
	svc, env := newTestService(t)
	p := newProduct("100", "0", "0", 10)
	env.products.add(p)
	cp := fixedCoupon("DERNIER", "10")
	cp.MaxUses = 1
	env.coupons.byCode[cp.Code] = cp

	first := userOwner(t, 1)
	second := userOwner(t, 2)
	_, err := svc.AddItem(context.Background(), first, p.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), second, p.ID.String(), 1)
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(context.Background(), first, cp.Code)
	require.NoError(t, err)

	// le tracking consommé fait avancer le plafond global : la
	// rédemption suivante est refusée
	_, err = svc.ApplyCoupon(context.Background(), second, cp.Code)
	assert.ErrorIs(t, err, ErrCouponLimitExceeded)
}

func TestApplyCouponConsumesPerUserCap(t *testing.T) {
	svc, env := newTestService(t)
	key := userOwner(t, 11)
	p := newProduct("100", "0", "0", 10)
	env.products.add(p)
	cp := fixedCoupon("UNE_FOIS", "10")
	cp.MaxUsesPerUser = 1
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), key, cp.Code)
	require.NoError(t, err)

	// retirer puis ré-appliquer est une nouvelle rédemption, bloquée
	// par le plafond personnel déjà consommé
	_, err = svc.RemoveCoupon(context.Background(), key)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), key, cp.Code)
	assert.ErrorIs(t, err, ErrCouponLimitExceeded)
}

func TestApplyCouponSameCodeDoesNotRetrack(t *testing.T) {
	svc, env := newTestService(t)
	key := userOwner(t, 12)
	p := newProduct("100", "10", "1", 10)
	env.products.add(p)
	cp := fixedCoupon("ATTACHE", "20")
	cp.MaxUses = 1
	cp.MaxUsesPerUser = 1
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 2)
	require.NoError(t, err)

	first, err := svc.ApplyCoupon(context.Background(), key, cp.Code)
	require.NoError(t, err)

	// ré-appliquer le code déjà attaché (le checkout repasse par là) ne
	// consomme pas de rédemption supplémentaire
	again, err := svc.ApplyCoupon(context.Background(), key, cp.Code)
	require.NoError(t, err)
	assert.True(t, again.Equal(first))
	assert.Len(t, env.coupons.trackings, 1)
	assert.Equal(t, 1, env.coupons.locks)
}

func TestApplyCouponRequiresPersistedCart(t *testing.T) {
	svc, env := newTestService(t)
	cp := fixedCoupon("X", "5")
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.ApplyCoupon(context.Background(), sessionOwner(t), cp.Code)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestApplyCouponRejectedLeavesCartUntouched(t *testing.T) {
	svc, env := newTestService(t)
	key := userOwner(t, 7)
	p := newProduct("100", "0", "0", 10)
	env.products.add(p)

	cp := baseCoupon("DEAD")
	cp.ExpiresAt = testNow.Add(-time.Hour)
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 1)
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(context.Background(), key, cp.Code)
	assert.ErrorIs(t, err, ErrCouponExpired)

	c, err := svc.GetCart(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, c.Coupon)
	assert.True(t, c.TotalDiscount.Equal(decimal.Zero))
	assert.Empty(t, env.coupons.trackings)
}

func TestRemoveCouponIdempotent(t *testing.T) {
	svc, env := newTestService(t)
	key := sessionOwner(t)

	// sans coupon attaché : no-op, pas une erreur
	c, err := svc.RemoveCoupon(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, c.Coupon)
	assert.Zero(t, env.carts.saves)
}

func TestRemoveCouponResetsDiscount(t *testing.T) {
	svc, env := newTestService(t)
	key := userOwner(t, 3)
	p := newProduct("100", "10", "1", 10)
	env.products.add(p)
	cp := fixedCoupon("OFF", "20")
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), key, p.ID.String(), 2)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), key, cp.Code)
	require.NoError(t, err)

	c, err := svc.RemoveCoupon(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, c.Coupon)
	assert.True(t, c.TotalDiscount.Equal(decimal.Zero))
	assert.True(t, c.TotalAmount.Equal(dec("211")))
}

// ======================= FUSION À LA CONNEXION =======================

func TestMergeOnLoginIntoExistingCart(t *testing.T) {
	svc, env := newTestService(t)
	sessionKey := sessionOwner(t)
	userKey := userOwner(t, 1)

	p1 := newProduct("10", "1", "0", 10)
	p2 := newProduct("20", "1", "0", 10)
	env.products.add(p1)
	env.products.add(p2)

	// panier anonyme {P1:2, P2:1}, panier utilisateur {P1:3}
	_, err := svc.AddItem(context.Background(), sessionKey, p1.ID.String(), 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), sessionKey, p2.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userKey, p1.ID.String(), 3)
	require.NoError(t, err)

	savesBefore := env.carts.saves
	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionKey, userKey)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	require.Len(t, merged.Items, 2)
	assert.Equal(t, 5, merged.FindItemByProduct(p1.ID).Quantity)
	assert.Equal(t, 1, merged.FindItemByProduct(p2.ID).Quantity)

	assert.Equal(t, savesBefore+1, env.carts.saves, "une seule sauvegarde en fin de fusion")
	assert.Equal(t, 1, env.carts.deletes, "le panier anonyme est supprimé")

	gone, err := env.carts.FindByOwnerKey(context.Background(), sessionKey)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMergeOnLoginFreshUserCart(t *testing.T) {
	svc, env := newTestService(t)
	sessionKey := sessionOwner(t)
	userKey := userOwner(t, 2)

	p := newProduct("10", "1", "0", 10)
	env.products.add(p)
	_, err := svc.AddItem(context.Background(), sessionKey, p.ID.String(), 2)
	require.NoError(t, err)

	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionKey, userKey)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
	require.NotNil(t, merged.UserID)
	assert.Equal(t, int64(2), *merged.UserID)
	assert.Equal(t, 1, env.carts.deletes)
}

func TestMergeOnLoginNoAnonymousCart(t *testing.T) {
	svc, env := newTestService(t)
	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionOwner(t), userOwner(t, 3))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, merged.Items)
	assert.Equal(t, 1, env.carts.saves, "le panier utilisateur est persisté tel quel")
	assert.Zero(t, env.carts.deletes)
}

func TestMergeSkipsDeletedProduct(t *testing.T) {
	svc, env := newTestService(t)
	sessionKey := sessionOwner(t)
	userKey := userOwner(t, 4)

	p1 := newProduct("10", "1", "0", 10)
	p2 := newProduct("20", "1", "0", 10)
	env.products.add(p1)
	env.products.add(p2)

	_, err := svc.AddItem(context.Background(), sessionKey, p1.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), sessionKey, p2.ID.String(), 1)
	require.NoError(t, err)

	// P2 disparaît du catalogue entre temps
	delete(env.products.byID, p2.ID)

	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionKey, userKey)
	require.NoError(t, err, "une ligne morte ne fait jamais échouer la connexion")

	require.Len(t, merged.Items, 1)
	assert.Equal(t, p1.ID, merged.Items[0].ProductID)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "produit introuvable")
	assert.Equal(t, 1, env.carts.deletes, "le panier anonyme est supprimé malgré la ligne abandonnée")
}

func TestMergeSkipsOverStockLine(t *testing.T) {
	svc, env := newTestService(t)
	sessionKey := sessionOwner(t)
	userKey := userOwner(t, 5)

	p := newProduct("10", "1", "0", 5)
	env.products.add(p)

	_, err := svc.AddItem(context.Background(), sessionKey, p.ID.String(), 3)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userKey, p.ID.String(), 3)
	require.NoError(t, err)

	// 3+3 > 5 : la ligne est abandonnée entière, jamais appliquée en partie
	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionKey, userKey)
	require.NoError(t, err)

	require.Len(t, merged.Items, 1)
	assert.Equal(t, 3, merged.Items[0].Quantity, "la quantité utilisateur reste inchangée")
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "stock insuffisant")
}

func TestMergeDropsInvalidCoupon(t *testing.T) {
	svc, env := newTestService(t)
	sessionKey := sessionOwner(t)
	userKey := userOwner(t, 6)

	p := newProduct("10", "1", "0", 10)
	env.products.add(p)
	cp := fixedCoupon("SOON_DEAD", "2")
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), sessionKey, p.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), sessionKey, cp.Code)
	require.NoError(t, err)

	// le coupon expire avant la connexion
	cp.ExpiresAt = testNow.Add(-time.Minute)

	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionKey, userKey)
	require.NoError(t, err, "un coupon invalide est abandonné, pas une erreur")

	assert.Nil(t, merged.Coupon)
	require.Len(t, merged.Items, 1, "la fusion des lignes se poursuit")
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "coupon abandonné")
}

func TestMergeCarriesValidCoupon(t *testing.T) {
	svc, env := newTestService(t)
	sessionKey := sessionOwner(t)
	userKey := userOwner(t, 8)

	p := newProduct("100", "0", "0", 10)
	env.products.add(p)
	cp := baseCoupon("CARRY") // 10% ORDER
	env.coupons.byCode[cp.Code] = cp

	_, err := svc.AddItem(context.Background(), sessionKey, p.ID.String(), 2)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), sessionKey, cp.Code)
	require.NoError(t, err)

	merged, skipped, err := svc.MergeOnLogin(context.Background(), sessionKey, userKey)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	require.NotNil(t, merged.Coupon)
	assert.Equal(t, "CARRY", merged.Coupon.Code)
	assert.True(t, merged.TotalDiscount.Equal(dec("20.00")))
}

// ======================= ENTRETIEN =======================

func TestPurgeStaleSessions(t *testing.T) {
	svc, env := newTestService(t)

	stale := sessionOwner(t)
	fresh := sessionOwner(t)
	p := newProduct("10", "0", "0", 10)
	env.products.add(p)

	_, err := svc.AddItem(context.Background(), stale, p.ID.String(), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), fresh, p.ID.String(), 1)
	require.NoError(t, err)

	// vieillit le panier stale au-delà de la rétention (90 jours)
	env.carts.byKey[stale.String()].UpdatedAt = testNow.Add(-91 * 24 * time.Hour)

	purged, err := svc.PurgeStaleSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	remaining, err := env.carts.FindByOwnerKey(context.Background(), fresh)
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}
