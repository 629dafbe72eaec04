package routes

import (
	pa "cedra_cart_service/internal/handlers/payement"
	"cedra_cart_service/internal/handlers/user"
	"cedra_cart_service/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Use(middleware.CartSession()) // la connexion fusionne le panier de session
	{
		auth.POST("/register", user.Register)
		auth.POST("/login", user.Login)
	}

	// Panier : accessible anonyme (cookie de session) comme authentifié
	cartGroup := api.Group("/cart")
	cartGroup.Use(middleware.AuthOptional(), middleware.CartSession())
	{
		cartGroup.GET("", user.GetCart)
		cartGroup.POST("/add", user.AddToCart)
		cartGroup.PUT("/items/:itemId", user.UpdateCartItem)
		cartGroup.DELETE("/items/:itemId", user.RemoveCartItem)
		cartGroup.DELETE("/clear", user.ClearCart)
		cartGroup.POST("/coupon", user.ApplyCoupon)
		cartGroup.DELETE("/coupon", user.RemoveCoupon)
		cartGroup.GET("/ws", user.CartWebSocket)
	}

	// Validation de coupon contre le panier courant
	api.GET("/coupons/validate", middleware.AuthOptional(), middleware.CartSession(), pa.ValidateCouponDetailed)

	// Checkout (authentifié)
	api.POST("/checkout", middleware.AuthRequired(), pa.Checkout)

	// Administration des coupons (rôle admin requis)
	admin := api.Group("/admin/coupons")
	admin.Use(middleware.AuthRequired(), middleware.RequireAdmin())
	{
		admin.POST("", pa.CreateCoupon)
		admin.GET("", pa.GetAllCoupons)
		admin.PUT("/:code", pa.UpdateCoupon)
		admin.DELETE("/:code", pa.DeleteCoupon)
	}
}
