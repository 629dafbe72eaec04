package cart

import (
	"fmt"
	"strconv"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// OwnerKey identifie le propriétaire d'un panier : soit un utilisateur
// authentifié (id numérique), soit une session anonyme (UUID). Les
// deux sont mutuellement exclusifs. Le contexte est toujours passé
// explicitement aux opérations, jamais porté par un état ambiant.
type OwnerKey struct {
	UserID    *int64
	SessionID *gocql.UUID
}

// UserKey valide un identifiant utilisateur. Entrée malformée =
// ErrBadRequest avant toute lecture en base.
func UserKey(raw string) (OwnerKey, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return OwnerKey{}, fmt.Errorf("%w : identifiant utilisateur malformé", ErrBadRequest)
	}
	return OwnerKey{UserID: &id}, nil
}

// SessionKey valide un identifiant de session anonyme (UUID).
func SessionKey(raw string) (OwnerKey, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return OwnerKey{}, fmt.Errorf("%w : identifiant de session malformé", ErrBadRequest)
	}
	sid := gocql.UUID(id)
	return OwnerKey{SessionID: &sid}, nil
}

// String sert de clé de canal pub/sub et de trace.
func (k OwnerKey) String() string {
	if k.UserID != nil {
		return "user:" + strconv.FormatInt(*k.UserID, 10)
	}
	if k.SessionID != nil {
		return "session:" + k.SessionID.String()
	}
	return "anonyme"
}
