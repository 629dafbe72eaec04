package middleware

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cartSessionName = "cedra_cart"
	cartSessionKey  = "cart_session_id"
)

var cartSessionStore = newCartSessionStore()

func newCartSessionStore() *sessions.CookieStore {
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "super_secret"
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400 * 90) // aligné sur la rétention des paniers de session
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	return store
}

// CartSession garantit un identifiant de session panier (UUID) pour
// les appelants anonymes, porté par un cookie signé, et le place dans
// le contexte gin.
func CartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := cartSessionStore.Get(c.Request, cartSessionName)

		sid, ok := session.Values[cartSessionKey].(string)
		if !ok || sid == "" {
			sid = uuid.NewString()
			session.Values[cartSessionKey] = sid
			if err := session.Save(c.Request, c.Writer); err != nil {
				c.JSON(500, gin.H{"error": "Erreur création session panier"})
				c.Abort()
				return
			}
		}

		c.Set("cart_session_id", sid)
		c.Next()
	}
}
