package domain

import (
	"strings"
	"time"
)

const MaxCaptionLength = 2200

// Post est l'agrégat post : possédé exclusivement par son créateur,
// cycle de vie borné par CreatePost/DeletePost. LikeCount est le compteur
// dénormalisé du set post_likes (invariant : LikeCount == |likedBy|).
type Post struct {
	ID        string
	PostedBy  string
	Caption   string
	ImageURL  string
	LikeCount int64
	CreatedAt time.Time
}

// PostView est le modèle de lecture hydraté pour l'UI.
type PostView struct {
	Post
	Username      string
	ProfilePicURL string
	IsLiked       bool // le viewer a-t-il liké ce post ?
}

func ValidateCaption(caption string) error {
	if len(strings.TrimSpace(caption)) == 0 || len(caption) > MaxCaptionLength {
		return ErrInvalidInput
	}
	return nil
}
