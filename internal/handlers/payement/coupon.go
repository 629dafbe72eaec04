package pa

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cedra_cart_service/internal/cart"
	"cedra_cart_service/internal/database"
	"cedra_cart_service/internal/models"
)

// Svc est injecté par main au démarrage.
var Svc *cart.Service

func Init(s *cart.Service) {
	Svc = s
}

// CreateCoupon - Créer un nouveau coupon (Admin seulement). Les
// rattachements société/produit (catégories COMPANY_SPECIFIC et
// PRODUCT_SPECIFIC) sont enregistrés comme lignes de tracking.
func CreateCoupon(c *gin.Context) {
	var req struct {
		Code           string    `json:"code" binding:"required"`
		Scope          string    `json:"scope" binding:"required"`    // "ORDER" | "ITEM"
		Category       string    `json:"category" binding:"required"` // "GENERAL" | "COMPANY_SPECIFIC" | "PRODUCT_SPECIFIC"
		Type           string    `json:"type" binding:"required"`     // "PERCENTAGE" | "FIXED"
		Value          float64   `json:"value" binding:"required"`
		MaxUses        int       `json:"max_uses"`
		MaxUsesPerUser int       `json:"max_uses_per_user"`
		CompanyIDs     []string  `json:"company_ids"`
		ProductIDs     []string  `json:"product_ids"`
		ExpiresAt      time.Time `json:"expires_at" binding:"required"`
		StartsAt       time.Time `json:"starts_at"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	// Validation du type et des valeurs
	if req.Type != string(models.TypePercentage) && req.Type != string(models.TypeFixed) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type de coupon invalide"})
		return
	}
	if req.Type == string(models.TypePercentage) && (req.Value <= 0 || req.Value > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pourcentage doit être entre 1 et 100"})
		return
	}
	if req.Type == string(models.TypeFixed) && req.Value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Montant fixe doit être positif"})
		return
	}
	if req.Scope != string(models.ScopeOrder) && req.Scope != string(models.ScopeItem) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Portée de coupon invalide"})
		return
	}
	switch models.CouponCategory(req.Category) {
	case models.CategoryGeneral:
	case models.CategoryCompanySpecific:
		if len(req.CompanyIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Au moins une société requise pour COMPANY_SPECIFIC"})
			return
		}
	case models.CategoryProductSpecific:
		if len(req.ProductIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Au moins un produit requis pour PRODUCT_SPECIFIC"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Catégorie de coupon invalide"})
		return
	}

	cartsSession, err := database.GetCartsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Le code est unique et sensible à la casse
	var existingCode string
	if err := cartsSession.Query("SELECT code FROM coupons WHERE code = ? LIMIT 1", req.Code).
		Scan(&existingCode); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Ce code coupon existe déjà"})
		return
	}

	userID := c.GetString("user_id")
	couponID := gocql.UUID(uuid.New())
	now := time.Now()

	if req.StartsAt.IsZero() {
		req.StartsAt = now
	}

	if err := cartsSession.Query(`INSERT INTO coupons (id, code, scope, category, type, value, starts_at, expires_at, is_active, max_uses, max_uses_per_user, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		couponID, req.Code, req.Scope, req.Category, req.Type, req.Value,
		req.StartsAt, req.ExpiresAt, true, req.MaxUses, req.MaxUsesPerUser,
		userID, now, now).Exec(); err != nil {
		log.Printf("❌ Erreur création coupon: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du coupon"})
		return
	}

	// Rattachements société/produit
	for _, raw := range req.CompanyIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID société invalide: " + raw})
			return
		}
		if err := cartsSession.Query(`INSERT INTO coupon_tracking (coupon_id, tracking_id, user_id, company_id, product_id, used, used_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			couponID, gocql.UUID(uuid.New()), int64(0), gocql.UUID(id), gocql.UUID{}, false, time.Time{}).
			Exec(); err != nil {
			log.Printf("❌ Erreur rattachement société: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du coupon"})
			return
		}
	}
	for _, raw := range req.ProductIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide: " + raw})
			return
		}
		if err := cartsSession.Query(`INSERT INTO coupon_tracking (coupon_id, tracking_id, user_id, company_id, product_id, used, used_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			couponID, gocql.UUID(uuid.New()), int64(0), gocql.UUID{}, gocql.UUID(id), false, time.Time{}).
			Exec(); err != nil {
			log.Printf("❌ Erreur rattachement produit: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du coupon"})
			return
		}
	}

	log.Printf("✅ Coupon créé: %s", req.Code)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon créé avec succès",
		"coupon": gin.H{
			"id":       couponID,
			"code":     req.Code,
			"scope":    req.Scope,
			"category": req.Category,
			"type":     req.Type,
			"value":    req.Value,
		},
	})
}

// ValidateCouponDetailed - Valider un coupon contre le panier courant
// de l'appelant (sans l'attacher).
func ValidateCouponDetailed(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code coupon requis"})
		return
	}

	key, ok := resolveOwnerKey(c)
	if !ok {
		return
	}

	current, err := Svc.GetCart(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	coupon, err := Svc.ValidateCoupon(c.Request.Context(), code, key.UserID, current.Items)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"is_valid":      false,
			"error_message": err.Error(),
		})
		return
	}

	discount := cart.CalculateDiscount(coupon, current.Items, current.SubtotalPrice)
	c.JSON(http.StatusOK, gin.H{
		"is_valid": true,
		"code":     coupon.Code,
		"type":     coupon.Type,
		"scope":    coupon.Scope,
		"discount": discount,
	})
}

// GetAllCoupons - Récupérer tous les coupons (Admin)
func GetAllCoupons(c *gin.Context) {
	cartsSession, err := database.GetCartsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := cartsSession.Query(`SELECT id, code, scope, category, type, value, starts_at, expires_at, is_active, max_uses, max_uses_per_user, created_by, created_at, updated_at
		FROM coupons`).Iter()
	defer iter.Close()

	now := time.Now()
	var coupons []gin.H
	var (
		cp                     models.Coupon
		scope, category, ctype string
		value                  float64
	)
	for iter.Scan(&cp.ID, &cp.Code, &scope, &category, &ctype, &value,
		&cp.StartsAt, &cp.ExpiresAt, &cp.IsActive, &cp.MaxUses, &cp.MaxUsesPerUser,
		&cp.CreatedBy, &cp.CreatedAt, &cp.UpdatedAt) {
		cp.Scope = models.CouponScope(scope)
		cp.Category = models.CouponCategory(category)
		cp.Type = models.CouponType(ctype)
		cp.Value = decimal.NewFromFloat(value)
		coupons = append(coupons, gin.H{
			"id":                cp.ID,
			"code":              cp.Code,
			"scope":             cp.Scope,
			"category":          cp.Category,
			"type":              cp.Type,
			"value":             cp.Value,
			"starts_at":         cp.StartsAt,
			"expires_at":        cp.ExpiresAt,
			"is_active":         cp.IsActive,
			"max_uses":          cp.MaxUses,
			"max_uses_per_user": cp.MaxUsesPerUser,
			"usable_now":        cart.WithinWindow(&cp, now),
		})
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur récupération coupons: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"total":   len(coupons),
	})
}

// UpdateCoupon - Mettre à jour un coupon (activation, plafond, expiration)
func UpdateCoupon(c *gin.Context) {
	code := c.Param("code")

	var req struct {
		IsActive  *bool      `json:"is_active"`
		MaxUses   *int       `json:"max_uses"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if req.IsActive == nil && req.MaxUses == nil && req.ExpiresAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucune mise à jour fournie"})
		return
	}

	cartsSession, err := database.GetCartsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var existing string
	if err := cartsSession.Query("SELECT code FROM coupons WHERE code = ?", code).
		Scan(&existing); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Coupon introuvable"})
		return
	}

	if req.IsActive != nil {
		if err := cartsSession.Query("UPDATE coupons SET is_active = ?, updated_at = ? WHERE code = ?",
			*req.IsActive, time.Now(), code).Exec(); err != nil {
			log.Printf("❌ Erreur mise à jour coupon: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
			return
		}
	}
	if req.MaxUses != nil {
		if err := cartsSession.Query("UPDATE coupons SET max_uses = ?, updated_at = ? WHERE code = ?",
			*req.MaxUses, time.Now(), code).Exec(); err != nil {
			log.Printf("❌ Erreur mise à jour coupon: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
			return
		}
	}
	if req.ExpiresAt != nil {
		if err := cartsSession.Query("UPDATE coupons SET expires_at = ?, updated_at = ? WHERE code = ?",
			*req.ExpiresAt, time.Now(), code).Exec(); err != nil {
			log.Printf("❌ Erreur mise à jour coupon: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Coupon mis à jour avec succès"})
}

// DeleteCoupon - Supprimer un coupon
func DeleteCoupon(c *gin.Context) {
	code := c.Param("code")

	cartsSession, err := database.GetCartsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var couponID gocql.UUID
	if err := cartsSession.Query("SELECT id FROM coupons WHERE code = ?", code).
		Scan(&couponID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Coupon introuvable"})
		return
	}

	if err := cartsSession.Query("DELETE FROM coupon_tracking WHERE coupon_id = ?", couponID).Exec(); err != nil {
		log.Printf("❌ Erreur suppression trackings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression"})
		return
	}
	if err := cartsSession.Query("DELETE FROM coupons WHERE code = ?", code).Exec(); err != nil {
		log.Printf("❌ Erreur suppression coupon: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Coupon supprimé avec succès"})
}
