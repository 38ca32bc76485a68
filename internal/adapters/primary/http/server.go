// Package http est l'adapter primaire : il traduit le contrat
// requête/réponse de l'UI vers les ports du core.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zingsocial/social-core/internal/core/ports"
	"github.com/zingsocial/social-core/internal/core/services"
)

type Server struct {
	graph    ports.GraphService
	posts    ports.PostService
	users    ports.UserService
	presence ports.PresenceService
	tracker  *services.PresenceTracker
	verifier ports.TokenVerifier
}

func NewServer(
	graph ports.GraphService,
	posts ports.PostService,
	users ports.UserService,
	presence ports.PresenceService,
	tracker *services.PresenceTracker,
	verifier ports.TokenVerifier,
) *Server {
	return &Server{
		graph:    graph,
		posts:    posts,
		users:    users,
		presence: presence,
		tracker:  tracker,
		verifier: verifier,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(AuthMiddleware(s.verifier))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		// Graphe
		r.Post("/users/{uid}/follow", s.handleToggleFollow)
		r.Post("/posts/{postID}/like", s.handleToggleLike)

		// Posts
		r.Post("/posts", s.handleCreatePost)
		r.Delete("/posts/{postID}", s.handleDeletePost)
		r.Get("/posts/{postID}", s.handleGetPost)
		r.Get("/posts/{postID}/likes", s.handleListLikers)
		r.Get("/feed", s.handleHomeFeed)

		// Commentaires
		r.Post("/posts/{postID}/comments", s.handleCreateComment)
		r.Get("/posts/{postID}/comments", s.handleListComments)

		// Profils
		r.Get("/users/{uid}", s.handleGetProfile)
		r.Patch("/users/me", s.handleUpdateProfile)
		r.Get("/users/{uid}/posts", s.handleListByAuthor)
		r.Get("/users/{uid}/followers", s.handleListFollowers)
		r.Get("/users/{uid}/following", s.handleListFollowing)
		r.Get("/username-available", s.handleUsernameAvailable)

		// Présence
		r.Get("/users/{uid}/presence", s.handleGetPresence)
		r.Post("/presence/connect", s.handlePresenceConnect)
		r.Post("/presence/disconnect", s.handlePresenceDisconnect)
	})

	return r
}
