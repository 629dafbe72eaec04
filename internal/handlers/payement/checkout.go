package pa

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"cedra_cart_service/internal/cart"
)

// resolveOwnerKey : utilisateur authentifié d'abord, session anonyme sinon.
func resolveOwnerKey(c *gin.Context) (cart.OwnerKey, bool) {
	if userID := c.GetString("user_id"); userID != "" {
		key, err := cart.UserKey(userID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant utilisateur invalide"})
			return cart.OwnerKey{}, false
		}
		return key, true
	}
	if sid := c.GetString("cart_session_id"); sid != "" {
		key, err := cart.SessionKey(sid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session panier invalide"})
			return cart.OwnerKey{}, false
		}
		return key, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Aucune session panier"})
	return cart.OwnerKey{}, false
}

// Checkout crée un PaymentIntent Stripe à partir du panier tarifé
// (sous-total + livraison − remise). Le coupon optionnel passe par le
// chemin d'application verrouillé : deux requêtes concurrentes ne
// peuvent pas dépasser ensemble le plafond de rédemption.
func Checkout(c *gin.Context) {
	var req struct {
		CouponCode string `json:"coupon_code"` // Optionnel
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	key, err := cart.UserKey(userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant utilisateur invalide"})
		return
	}

	// Application (verrouillée) du coupon avant tarification finale
	if req.CouponCode != "" {
		if _, err := Svc.ApplyCoupon(c.Request.Context(), key, req.CouponCode); err != nil {
			respondCouponError(c, err)
			return
		}
	}

	current, err := Svc.GetCart(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}
	if len(current.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	amountCents := current.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String("eur"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"user_id":  userID,
			"email":    email,
			"subtotal": current.SubtotalPrice.String(),
			"shipping": current.TotalShippingCost.String(),
			"discount": current.TotalDiscount.String(),
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement", "details": err.Error()})
		return
	}

	log.Printf("💳 Checkout créé: %s (%s€) pour %s", intent.ID, current.TotalAmount, email)

	c.JSON(http.StatusOK, gin.H{
		"client_secret": intent.ClientSecret,
		"payment_id":    intent.ID,
		"subtotal":      current.SubtotalPrice,
		"shipping":      current.TotalShippingCost,
		"discount":      current.TotalDiscount,
		"total":         current.TotalAmount,
		"currency":      "eur",
		"items_count":   len(current.Items),
	})
}

func respondCouponError(c *gin.Context, err error) {
	switch {
	case isOneOf(err, cart.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Code coupon invalide"})
	case isOneOf(err, cart.ErrCouponExpired, cart.ErrCouponInvalid, cart.ErrCouponLimitExceeded, cart.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case isOneOf(err, cart.ErrCartNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
	}
}

func isOneOf(err error, sentinels ...error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
