package cart

import (
	"fmt"

	"cedra_cart_service/internal/models"
)

// EnsureAvailable vérifie la quantité demandée contre le stock du
// produit. Contrôle pur : la décrémentation du stock se fait à la
// commande, pas à la mutation du panier. Sur une mise à jour, la
// quantité passée est le nouveau total, pas le delta.
func EnsureAvailable(p *models.Product, requested int) error {
	if requested > p.Stock {
		return fmt.Errorf("%w : %s (disponible: %d, demandé: %d)",
			ErrInsufficientStock, p.Name, p.Stock, requested)
	}
	return nil
}
