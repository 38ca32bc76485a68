package ports

import (
	"context"
	"io"
	"time"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// --- Ports Driven (Stores) ---

type UserRepository interface {
	GetByID(ctx context.Context, uid string) (*domain.User, error)
	// GetMany hydrate une liste d'uids en une requête (ordre : username).
	GetMany(ctx context.Context, uids []string) ([]*domain.User, error)
	UpdateProfile(ctx context.Context, cmd domain.UpdateProfileCmd) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// GraphRepository porte les transactions atomiques du graphe social.
// C'est ICI que vit la garantie tout-ou-rien : mutation des sets de
// relations + compteurs dénormalisés dans une seule transaction.
type GraphRepository interface {
	// ToggleFollow : lit l'appartenance de actorID à Followers(targetID)
	// sous verrou, puis applique les 4 écritures (2 sets + 2 compteurs).
	ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error)
	// ToggleLike : même contrat pour likedBy + likeCount.
	ToggleLike(ctx context.Context, actorID, postID string) (bool, error)

	IsFollowing(ctx context.Context, actorID, targetID string) (bool, error)
	FollowerIDs(ctx context.Context, uid string) ([]string, error)
	FollowingIDs(ctx context.Context, uid string) ([]string, error)
	LikerIDs(ctx context.Context, postID string) ([]string, error)
	// LikedSet renvoie, parmi postIDs, ceux que viewerID a likés.
	LikedSet(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error)
}

type PostRepository interface {
	// Create insère le post ET incrémente postCount du propriétaire dans
	// une seule transaction. Le set de likes naît vide (zéro ligne).
	Create(ctx context.Context, post *domain.Post) error
	// Delete supprime le post, ses likes et décrémente postCount, dans une
	// seule transaction. Le blob est géré par le service (non transactionnel).
	Delete(ctx context.Context, post *domain.Post) error

	GetByID(ctx context.Context, postID string) (*domain.Post, error)
	ListByAuthor(ctx context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error)
	// ListByAuthors : feed home (posts des suivis), même pagination keyset.
	ListByAuthors(ctx context.Context, authorIDs []string, limit int, cursorTime time.Time) ([]*domain.Post, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByPost(ctx context.Context, postID string, limit int, cursorTime time.Time) ([]*domain.Comment, error)
}

// --- Ports Driven (Présence) ---

// EphemeralPresence est le store temps réel, autoritaire tant qu'une
// connexion est vivante. SetOnline arme aussi le hook de déconnexion côté
// serveur : si le process meurt sans SetOffline, le store bascule l'état
// à offline tout seul (expiration), sans aucun code client.
type EphemeralPresence interface {
	SetOnline(ctx context.Context, uid string) error
	// Heartbeat ré-arme le hook (refresh du TTL). À appeler périodiquement
	// tant que la connexion est vivante.
	Heartbeat(ctx context.Context, uid string) error
	SetOffline(ctx context.Context, uid string) error
	// Get renvoie ErrNotFound si aucune entrée vivante (= offline).
	Get(ctx context.Context, uid string) (*domain.Presence, error)
}

// DurablePresence est le miroir best-effort pour les lecteurs non abonnés
// au temps réel (écrans de profil).
type DurablePresence interface {
	Set(ctx context.Context, uid string, state domain.PresenceState, at time.Time) error
	Get(ctx context.Context, uid string) (*domain.Presence, error)
}

// ConnectivityFeed expose les changements de connectivité de la plateforme.
// Souscription unique par process (pas par requête).
type ConnectivityFeed interface {
	Events() <-chan domain.ConnectivityEvent
}

// --- Ports Driven (Blobs & Events) ---

type BlobStore interface {
	// Upload écrit le blob sous key et renvoie une référence URL stable.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Delete supprime par référence URL (l'inverse de Upload).
	Delete(ctx context.Context, url string) error
}

// EventPublisher est best-effort : un échec de publication ne fait jamais
// échouer l'opération appelante (la donnée est déjà commitée).
type EventPublisher interface {
	PublishFollowToggled(ctx context.Context, actorID, targetID string, following bool) error
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, postID string) error
	PublishPostLiked(ctx context.Context, actorID, postID string, liked bool) error
}

// TokenVerifier valide les tokens émis par le service d'auth externe
// (vérification seule : l'émission est hors scope).
type TokenVerifier interface {
	Validate(token string) (string, error) // renvoie l'UID (Subject)
}
