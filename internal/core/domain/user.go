package domain

import (
	"strings"
	"time"
)

// DefaultProfilePicURL est l'avatar assigné à l'inscription (par le service
// d'auth externe). On ne supprime jamais ce blob partagé du storage.
const DefaultProfilePicURL = "https://storage.zingsocial.app/defaults/profile.png"

// --- ENTITÉ ---

// User est l'agrégat utilisateur : profil + compteurs dénormalisés.
// Les compteurs sont maintenus incrémentalement par les transactions du
// graphe, JAMAIS recalculés en scannant les sets (toute dérive est un bug).
type User struct {
	UID           string
	Name          string
	Username      string
	Bio           string
	ProfilePicURL string

	PostCount      int64
	FollowersCount int64
	FollowingCount int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile est le modèle de lecture renvoyé à l'UI : l'utilisateur enrichi
// de l'état relationnel du viewer (jamais d'objet store brut).
type Profile struct {
	User
	IsFollowing bool // le viewer suit-il cet utilisateur ?
}

// UpdateProfileCmd porte les champs modifiables du profil.
// Les pointeurs distinguent "non fourni" de "vider le champ".
type UpdateProfileCmd struct {
	UID      string
	Name     *string
	Username *string
	Bio      *string
	// AvatarURL est rempli par le service après upload du nouveau blob.
	AvatarURL *string
}

// ValidateUsername applique les invariants du handle.
func ValidateUsername(username string) error {
	u := strings.TrimSpace(username)
	if len(u) < 3 || len(u) > 30 {
		return ErrInvalidInput
	}
	for _, r := range u {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.') {
			return ErrInvalidInput
		}
	}
	return nil
}
