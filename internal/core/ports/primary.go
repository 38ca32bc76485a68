package ports

import (
	"context"
	"io"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// GraphService est le port Driving (API) des mutations du graphe social.
// Chaque toggle est atomique : les mutations de sets ET les compteurs
// dénormalisés commitent ensemble ou pas du tout.
type GraphService interface {
	// ToggleFollow renvoie le nouvel état (true = actor suit maintenant target).
	ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error)
	// ToggleLike renvoie le nouvel état (true = actor like maintenant le post).
	ToggleLike(ctx context.Context, actorID, postID string) (bool, error)
}

// ImageUpload porte le blob reçu du collaborateur UI.
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

type PostService interface {
	// CreatePost : upload blob -> record post -> postCount+1 -> set de likes.
	// L'upload n'est PAS transactionnel avec le reste (voir la politique
	// d'échec partiel : blob orphelin accepté, jamais rollbacké en silence).
	CreatePost(ctx context.Context, ownerID string, image ImageUpload, caption string) (*domain.Post, error)
	// DeletePost exige que actorID soit le propriétaire.
	DeletePost(ctx context.Context, actorID, postID string) error

	GetPost(ctx context.Context, postID, viewerID string) (*domain.PostView, error)
	// ListByAuthor : pagination keyset (cursor = date du dernier post vu).
	ListByAuthor(ctx context.Context, authorID, viewerID string, limit int, cursor string) ([]*domain.PostView, string, error)
	// HomeFeed : posts des utilisateurs suivis par viewerID.
	HomeFeed(ctx context.Context, viewerID string, limit int, cursor string) ([]*domain.PostView, string, error)

	CreateComment(ctx context.Context, authorID, postID, text string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string, limit int, cursor string) ([]*domain.CommentView, string, error)
}

type UserService interface {
	GetProfile(ctx context.Context, uid, viewerID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, cmd domain.UpdateProfileCmd, avatar *ImageUpload) (*domain.User, error)

	ListFollowers(ctx context.Context, uid string) ([]*domain.User, error)
	ListFollowing(ctx context.Context, uid string) ([]*domain.User, error)
	ListPostLikers(ctx context.Context, postID string) ([]*domain.User, error)

	// UsernameAvailable : check exact-match (la recherche full-text reste
	// sur l'index de recherche externe, hors scope).
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

type PresenceService interface {
	GetPresence(ctx context.Context, uid string) (*domain.Presence, error)
}
