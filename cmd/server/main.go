package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"cedra_cart_service/internal/cart"
	"cedra_cart_service/internal/config"
	"cedra_cart_service/internal/database"
	pa "cedra_cart_service/internal/handlers/payement"
	"cedra_cart_service/internal/handlers/user"
	"cedra_cart_service/internal/repository"
	"cedra_cart_service/internal/routes"
)

func main() {
	config.Load()

	secret := os.Getenv("STRIPE_SECRET_KEY")
	stripe.Key = secret
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	database.ConnectDatabases()

	// ✅ Initialiser les prepared statements pour améliorer les performances
	database.InitPreparedStatements()

	// Assemblage du cœur panier
	products := repository.NewProductScylla()
	coupons := repository.NewCouponScylla()
	carts := repository.NewCartScylla(products, coupons)
	svc := cart.NewService(products, carts, coupons, config.CartRetention())

	user.Init(svc)
	pa.Init(svc)

	// Entretien : purge des paniers de session périmés
	startHousekeeping(svc)

	r := gin.Default()
	routes.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Service panier Cedra lancé sur le port", port)
	r.Run(":" + port)
}

// startHousekeeping balaie périodiquement les paniers de session sans
// utilisateur dont la dernière modification dépasse la rétention.
// Seul comportement piloté par le temps du service.
func startHousekeeping(svc *cart.Service) {
	interval := config.PurgeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			purged, err := svc.PurgeStaleSessions(context.Background())
			if err != nil {
				log.Printf("❌ Erreur purge paniers périmés: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("🧹 %d panier(s) de session périmé(s) purgé(s)", purged)
			}
		}
	}()
	log.Printf("✅ Entretien des paniers activé (toutes les %s)", interval)
}
