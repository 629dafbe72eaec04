package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cedra_cart_service/internal/cart"
	"cedra_cart_service/internal/database"
	"cedra_cart_service/internal/models"
)

// Svc est injecté par main au démarrage.
var Svc *cart.Service

func Init(s *cart.Service) {
	Svc = s
}

// resolveOwnerKey : utilisateur authentifié d'abord, session anonyme
// sinon. La clé est validée ici puis passée explicitement au service.
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

// respondCartError mappe les erreurs métier du cœur vers les codes HTTP.
func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
	case errors.Is(err, cart.ErrCartItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article introuvable dans le panier"})
	case errors.Is(err, cart.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Panier introuvable"})
	case errors.Is(err, cart.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Code coupon invalide"})
	case errors.Is(err, cart.ErrCouponExpired),
		errors.Is(err, cart.ErrCouponInvalid),
		errors.Is(err, cart.ErrCouponLimitExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
	}
}

func cartResponse(c *models.Cart) gin.H {
	return gin.H{
		"cart":  c,
		"count": len(c.Items),
	}
}

// publishCartUpdate notifie les clients websocket abonnés.
func publishCartUpdate(key cart.OwnerKey, payload string) {
	database.Redis.Publish(context.Background(), "cart:"+key.String(), payload)
}

// GetCart retourne le panier tarifé. Lecture pure : ne provoque
// jamais d'écriture (un panier absent est construit en mémoire).
func GetCart(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	result, err := Svc.GetCart(c.Request.Context(), key)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(result))
}

// AddToCart : POST /api/cart/add
func AddToCart(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	var input struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	result, err := Svc.AddItem(c.Request.Context(), key, input.ProductID, input.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}

	publishCartUpdate(key, "updated")
	c.JSON(http.StatusOK, gin.H{
		"message": "Produit ajouté au panier",
		"cart":    result,
		"count":   len(result.Items),
	})
}

// UpdateCartItem : PUT /api/cart/items/:itemId (quantité absolue, 0 = suppression)
func UpdateCartItem(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	var input struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	result, err := Svc.UpdateQuantity(c.Request.Context(), key, c.Param("itemId"), *input.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}

	publishCartUpdate(key, "updated")
	c.JSON(http.StatusOK, gin.H{
		"message": "Quantité mise à jour",
		"cart":    result,
		"count":   len(result.Items),
	})
}

// RemoveCartItem : DELETE /api/cart/items/:itemId
func RemoveCartItem(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	result, err := Svc.RemoveItem(c.Request.Context(), key, c.Param("itemId"))
	if err != nil {
		respondCartError(c, err)
		return
	}

	publishCartUpdate(key, "updated")
	c.JSON(http.StatusOK, gin.H{
		"message": "Produit supprimé du panier",
		"cart":    result,
		"count":   len(result.Items),
	})
}

// ClearCart : DELETE /api/cart/clear
func ClearCart(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	result, err := Svc.ClearCart(c.Request.Context(), key)
	if err != nil {
		respondCartError(c, err)
		return
	}

	publishCartUpdate(key, "cleared")
	c.JSON(http.StatusOK, gin.H{
		"message": "Panier vidé avec succès",
		"cart":    result,
	})
}

// ApplyCoupon : POST /api/cart/coupon
func ApplyCoupon(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code coupon requis"})
		return
	}

	discount, err := Svc.ApplyCoupon(c.Request.Context(), key, input.Code)
	if err != nil {
		respondCartError(c, err)
		return
	}

	publishCartUpdate(key, "updated")
	c.JSON(http.StatusOK, gin.H{
		"message":  "Coupon appliqué",
		"code":     input.Code,
		"discount": discount,
	})
}

// RemoveCoupon : DELETE /api/cart/coupon (idempotent)
func RemoveCoupon(c *gin.Context) {
	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	result, err := Svc.RemoveCoupon(c.Request.Context(), key)
	if err != nil {
		respondCartError(c, err)
		return
	}

	publishCartUpdate(key, "updated")
	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon retiré",
		"cart":    result,
	})
}
