package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// CartRetention : fenêtre de rétention des paniers de session anonymes
// avant purge (CART_RETENTION_DAYS, 90 jours par défaut).
func CartRetention() time.Duration {
	days := 90
	if raw := os.Getenv("CART_RETENTION_DAYS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// PurgeInterval : cadence du balayage d'entretien des paniers périmés
// (CART_PURGE_INTERVAL_HOURS, 24h par défaut).
func PurgeInterval() time.Duration {
	hours := 24
	if raw := os.Getenv("CART_PURGE_INTERVAL_HOURS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			hours = n
		}
	}
	return time.Duration(hours) * time.Hour
}
