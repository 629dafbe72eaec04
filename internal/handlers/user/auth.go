package user

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"cedra_cart_service/internal/cart"
	"cedra_cart_service/internal/database"
	"cedra_cart_service/internal/models"
	"cedra_cart_service/internal/utils"
)

// ================== AUTH LOCALE ==================

func Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// email déjà pris ?
	var existingID int64
	if err := session.Query("SELECT user_id FROM users_by_email WHERE email = ?", input.Email).
		Scan(&existingID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte avec cet email existe déjà"})
		return
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	now := time.Now()
	user := models.User{
		ID:        now.UnixMilli(),
		Email:     input.Email,
		Password:  hashedPassword,
		Name:      input.Name,
		Role:      "customer",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := session.Query(`INSERT INTO users (user_id, email, password, name, role, is_company_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Password, user.Name, user.Role, false, user.CreatedAt, user.UpdatedAt).
		Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}
	if err := session.Query("INSERT INTO users_by_email (email, user_id) VALUES (?, ?)",
		user.Email, user.ID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	log.Printf("✅ Utilisateur créé: %s", user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"userId": strconv.FormatInt(user.ID, 10),
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	})
}

// Login authentifie l'utilisateur puis replie le panier de session
// anonyme dans son panier. La fusion est au mieux : une ligne ou un
// coupon qui ne passe pas est abandonné (et journalisé), jamais
// bloquant pour la connexion.
func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var userID int64
	if err := session.Query("SELECT user_id FROM users_by_email WHERE email = ?", input.Email).
		Scan(&userID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	var user models.User
	var companyID gocql.UUID
	user.ID = userID
	if err := session.Query(`SELECT email, password, name, role, company_id, is_company_admin
		FROM users WHERE user_id = ?`, userID).Scan(
		&user.Email, &user.Password, &user.Name, &user.Role, &companyID, &user.IsCompanyAdmin); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}
	var zeroCompany gocql.UUID
	if companyID != zeroCompany {
		user.CompanyID = &companyID
	}

	ok, err := utils.VerifyPassword(input.Password, user.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	response := gin.H{
		"token":  token,
		"userId": strconv.FormatInt(user.ID, 10),
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	}

	// Fusion du panier anonyme vers le panier utilisateur
	if sid := c.GetString("cart_session_id"); sid != "" {
		merged, skipped, err := mergeSessionCart(c, sid, user.ID)
		if err != nil {
			// La fusion ne doit jamais faire échouer la connexion
			log.Printf("⚠️ Fusion panier échouée pour %s: %v", user.Email, err)
		} else if merged != nil {
			response["cart"] = merged
			if len(skipped) > 0 {
				response["cart_skipped"] = skipped
				log.Printf("⚠️ Fusion panier partielle pour %s: %v", user.Email, skipped)
			}
		}
	}

	log.Printf("✅ Connexion: %s", user.Email)
	c.JSON(http.StatusOK, response)
}

func mergeSessionCart(c *gin.Context, sid string, userID int64) (*models.Cart, []string, error) {
	sessionKey, err := cart.SessionKey(sid)
	if err != nil {
		return nil, nil, err
	}
	userKey, err := cart.UserKey(strconv.FormatInt(userID, 10))
	if err != nil {
		return nil, nil, err
	}

	merged, skipped, err := Svc.MergeOnLogin(c.Request.Context(), sessionKey, userKey)
	if err != nil {
		return nil, nil, err
	}
	publishCartUpdate(userKey, "updated")
	return merged, skipped, nil
}
