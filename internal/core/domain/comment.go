package domain

import "time"

// Comment a un cycle de vie indépendant du graphe : créé et listé,
// jamais muté par le core de consistance.
type Comment struct {
	ID          string
	PostID      string
	CommentedBy string
	Text        string
	CreatedAt   time.Time
}

// CommentView : commentaire hydraté avec le profil de son auteur.
type CommentView struct {
	Comment
	Username      string
	ProfilePicURL string
}
