package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zingsocial/social-core/internal/core/domain"
	"github.com/zingsocial/social-core/internal/core/ports"
)

// 10 Mo : taille max d'une image de post (mémoire avant spill disque).
const maxUploadBytes = 10 << 20

// --- VUES JSON (read models, jamais d'objet store brut) ---

type userView struct {
	UID            string `json:"uid"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicURL  string `json:"profile_pic_url"`
	PostCount      int64  `json:"post_count"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

type profileView struct {
	userView
	IsFollowing bool `json:"is_following"`
}

type postView struct {
	ID            string    `json:"id"`
	PostedBy      string    `json:"posted_by"`
	Username      string    `json:"username"`
	ProfilePicURL string    `json:"profile_pic_url"`
	Caption       string    `json:"caption"`
	ImageURL      string    `json:"image_url"`
	LikeCount     int64     `json:"like_count"`
	IsLiked       bool      `json:"is_liked"`
	CreatedAt     time.Time `json:"created_at"`
}

type commentView struct {
	ID            string    `json:"id"`
	PostID        string    `json:"post_id"`
	CommentedBy   string    `json:"commented_by"`
	Username      string    `json:"username"`
	ProfilePicURL string    `json:"profile_pic_url"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

type pageView[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func toUserView(u *domain.User) userView {
	return userView{
		UID:            u.UID,
		Name:           u.Name,
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicURL:  u.ProfilePicURL,
		PostCount:      u.PostCount,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
	}
}

func toPostView(p *domain.PostView) postView {
	return postView{
		ID:            p.ID,
		PostedBy:      p.PostedBy,
		Username:      p.Username,
		ProfilePicURL: p.ProfilePicURL,
		Caption:       p.Caption,
		ImageURL:      p.ImageURL,
		LikeCount:     p.LikeCount,
		IsLiked:       p.IsLiked,
		CreatedAt:     p.CreatedAt,
	}
}

// --- GRAPHE ---

func (s *Server) handleToggleFollow(w http.ResponseWriter, r *http.Request) {
	actorID, ok := RequireUser(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "uid")

	following, err := s.graph.ToggleFollow(r.Context(), actorID, targetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	actorID, ok := RequireUser(w, r)
	if !ok {
		return
	}
	postID := chi.URLParam(r, "postID")

	liked, err := s.graph.ToggleLike(r.Context(), actorID, postID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// --- POSTS ---

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "bad multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "image file required")
		return
	}
	defer file.Close()

	post, err := s.posts.CreatePost(r.Context(), ownerID, ports.ImageUpload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, r.FormValue("caption"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostView(&domain.PostView{Post: *post}))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	actorID, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if err := s.posts.DeletePost(r.Context(), actorID, chi.URLParam(r, "postID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	view, err := s.posts.GetPost(r.Context(), chi.URLParam(r, "postID"), ForContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostView(view))
}

func (s *Server) handleListByAuthor(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pagination(r)
	views, next, err := s.posts.ListByAuthor(r.Context(), chi.URLParam(r, "uid"), ForContext(r.Context()), limit, cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postPage(views, next))
}

func (s *Server) handleHomeFeed(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := RequireUser(w, r)
	if !ok {
		return
	}
	limit, cursor := pagination(r)
	views, next, err := s.posts.HomeFeed(r.Context(), viewerID, limit, cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postPage(views, next))
}

// --- COMMENTAIRES ---

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	authorID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "bad json body")
		return
	}

	comment, err := s.posts.CreateComment(r.Context(), authorID, chi.URLParam(r, "postID"), body.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentView{
		ID:          comment.ID,
		PostID:      comment.PostID,
		CommentedBy: comment.CommentedBy,
		Text:        comment.Text,
		CreatedAt:   comment.CreatedAt,
	})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pagination(r)
	comments, next, err := s.posts.ListComments(r.Context(), chi.URLParam(r, "postID"), limit, cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]commentView, 0, len(comments))
	for _, c := range comments {
		items = append(items, commentView{
			ID:            c.ID,
			PostID:        c.PostID,
			CommentedBy:   c.CommentedBy,
			Username:      c.Username,
			ProfilePicURL: c.ProfilePicURL,
			Text:          c.Text,
			CreatedAt:     c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, pageView[commentView]{Items: items, NextCursor: next})
}

// --- PROFILS ---

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.users.GetProfile(r.Context(), chi.URLParam(r, "uid"), ForContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{userView: toUserView(&profile.User), IsFollowing: profile.IsFollowing})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := RequireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "bad multipart form")
		return
	}

	cmd := domain.UpdateProfileCmd{UID: uid}
	if v, ok := formValue(r, "name"); ok {
		cmd.Name = &v
	}
	if v, ok := formValue(r, "username"); ok {
		cmd.Username = &v
	}
	if v, ok := formValue(r, "bio"); ok {
		cmd.Bio = &v
	}

	var avatar *ports.ImageUpload
	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		avatar = &ports.ImageUpload{
			Reader:      file,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
		}
	}

	user, err := s.users.UpdateProfile(r.Context(), cmd, avatar)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListFollowers(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userList(users))
}

func (s *Server) handleListFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListFollowing(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userList(users))
}

func (s *Server) handleListLikers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListPostLikers(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userList(users))
}

func (s *Server) handleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := s.users.UsernameAvailable(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// --- PRÉSENCE ---

func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	p, err := s.presence.GetPresence(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uid":         p.UID,
		"state":       string(p.State),
		"last_change": p.LastChange,
	})
}

func (s *Server) handlePresenceConnect(w http.ResponseWriter, r *http.Request) {
	uid, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if err := s.tracker.Track(r.Context(), uid); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePresenceDisconnect(w http.ResponseWriter, r *http.Request) {
	uid, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if err := s.tracker.Untrack(r.Context(), uid); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- HELPERS ---

func pagination(r *http.Request) (int, string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			limit = i
		}
	}
	return limit, r.URL.Query().Get("cursor")
}

func formValue(r *http.Request, key string) (string, bool) {
	if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

func postPage(views []*domain.PostView, next string) pageView[postView] {
	items := make([]postView, 0, len(views))
	for _, v := range views {
		items = append(items, toPostView(v))
	}
	return pageView[postView]{Items: items, NextCursor: next}
}

func userList(users []*domain.User) pageView[userView] {
	items := make([]userView, 0, len(users))
	for _, u := range users {
		items = append(items, toUserView(u))
	}
	return pageView[userView]{Items: items}
}
