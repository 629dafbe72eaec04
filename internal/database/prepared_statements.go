package database

import (
	"log"
	"sync"

	"github.com/gocql/gocql"
)

// CQL des chemins chauds du panier, partagé entre l'amorçage et les
// dépôts : une seule définition du texte de requête, gocql prépare et
// met en cache côté session à la première exécution.
const (
	// Lecture produit pour la revérification de stock à chaque mutation
	CQLProductByID = `SELECT product_id, name, price, offer_price, stock, shipping_cost, per_unit_shipping_cost, company_id, is_active
		FROM products WHERE product_id = ?`

	// Résolution du panier par clé propriétaire
	CQLCartByUser    = "SELECT cart_id FROM carts_by_user WHERE user_id = ?"
	CQLCartBySession = "SELECT cart_id FROM carts_by_session WHERE session_id = ?"

	// Lecture coupon par code
	CQLCouponByCode = `SELECT id, code, scope, category, type, value, starts_at, expires_at, is_active, max_uses, max_uses_per_user, created_by, created_at, updated_at
		FROM coupons WHERE code = ?`
)

var preparedOnce sync.Once

// InitPreparedStatements amorce le cache de prepared statements gocql
// pour les requêtes chaudes, plutôt que de payer la préparation sur la
// première requête client.
func InitPreparedStatements() {
	preparedOnce.Do(func() {
		products, err := GetProductsSession()
		if err != nil {
			log.Printf("⚠️ Impossible d'initialiser les prepared statements produits: %v", err)
			return
		}
		carts, err := GetCartsSession()
		if err != nil {
			log.Printf("⚠️ Impossible d'initialiser les prepared statements paniers: %v", err)
			return
		}

		// Une exécution à vide par requête force la préparation et la
		// mise en cache côté gocql.
		var zero gocql.UUID
		products.Query(CQLProductByID, zero).Iter().Close()
		carts.Query(CQLCartByUser, int64(0)).Iter().Close()
		carts.Query(CQLCartBySession, zero).Iter().Close()
		carts.Query(CQLCouponByCode, "").Iter().Close()

		log.Println("✅ Prepared statements initialisés")
	})
}
