package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zingsocial/social-core/internal/core/domain"
	"github.com/zingsocial/social-core/internal/core/ports"
)

const defaultFeedLimit = 20

type postService struct {
	posts     ports.PostRepository
	comments  ports.CommentRepository
	users     ports.UserRepository
	graph     ports.GraphRepository
	blobs     ports.BlobStore
	publisher ports.EventPublisher
}

func NewPostService(
	posts ports.PostRepository,
	comments ports.CommentRepository,
	users ports.UserRepository,
	graph ports.GraphRepository,
	blobs ports.BlobStore,
	pub ports.EventPublisher,
) ports.PostService {
	return &postService{
		posts:     posts,
		comments:  comments,
		users:     users,
		graph:     graph,
		blobs:     blobs,
		publisher: pub,
	}
}

// CreatePost enchaîne : (a) upload blob, (b) record post + (c) postCount+1
// (une transaction), (d) set de likes vide (implicite : zéro ligne).
// Pas d'atomicité entre (a) et (b) : si le record échoue après l'upload,
// le blob reste orphelin. C'est assumé, on log et on remonte l'erreur.
func (s *postService) CreatePost(ctx context.Context, ownerID string, image ports.ImageUpload, caption string) (*domain.Post, error) {
	if ownerID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := domain.ValidateCaption(caption); err != nil {
		return nil, err
	}

	postID := uuid.New().String()

	// (a) Blob d'abord : le record ne doit jamais pointer vers une image
	// qui n'existe pas encore.
	key := fmt.Sprintf("posts/%s/%s", ownerID, postID)
	imageURL, err := s.blobs.Upload(ctx, key, image.Reader, image.Size, image.ContentType)
	if err != nil {
		return nil, fmt.Errorf("image upload: %w", err)
	}

	post := &domain.Post{
		ID:        postID,
		PostedBy:  ownerID,
		Caption:   caption,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}

	// (b)+(c)+(d) : une transaction côté repo.
	if err := s.posts.Create(ctx, post); err != nil {
		slog.Warn("post record failed after blob upload, orphaned blob", "post_id", postID, "url", imageURL, "error", err)
		return nil, err
	}

	if err := s.publisher.PublishPostCreated(ctx, post); err != nil {
		slog.Warn("post.created publish failed", "post_id", postID, "error", err)
	}

	return post, nil
}

// DeletePost : seul le propriétaire peut supprimer. Record + likes +
// compteur partent dans une transaction ; le blob ensuite, best-effort.
func (s *postService) DeletePost(ctx context.Context, actorID, postID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.PostedBy != actorID {
		return domain.ErrUnauthorized
	}

	if err := s.posts.Delete(ctx, post); err != nil {
		return err
	}

	// Le blob n'est pas dans la transaction : un échec ici laisse un blob
	// orphelin (même politique que la création), jamais un record orphelin.
	if err := s.blobs.Delete(ctx, post.ImageURL); err != nil {
		slog.Warn("post blob delete failed", "post_id", postID, "url", post.ImageURL, "error", err)
	}

	if err := s.publisher.PublishPostDeleted(ctx, postID); err != nil {
		slog.Warn("post.deleted publish failed", "post_id", postID, "error", err)
	}

	return nil
}

func (s *postService) GetPost(ctx context.Context, postID, viewerID string) (*domain.PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.hydratePosts(ctx, []*domain.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *postService) ListByAuthor(ctx context.Context, authorID, viewerID string, limit int, cursor string) ([]*domain.PostView, string, error) {
	cursorTime, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = clampLimit(limit)

	posts, err := s.posts.ListByAuthor(ctx, authorID, limit, cursorTime)
	if err != nil {
		return nil, "", err
	}

	views, err := s.hydratePosts(ctx, posts, viewerID)
	if err != nil {
		return nil, "", err
	}
	return views, encodeNextCursor(posts, limit), nil
}

// HomeFeed : posts des auteurs suivis par le viewer.
func (s *postService) HomeFeed(ctx context.Context, viewerID string, limit int, cursor string) ([]*domain.PostView, string, error) {
	cursorTime, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = clampLimit(limit)

	authorIDs, err := s.graph.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, "", err
	}
	if len(authorIDs) == 0 {
		return []*domain.PostView{}, "", nil
	}

	posts, err := s.posts.ListByAuthors(ctx, authorIDs, limit, cursorTime)
	if err != nil {
		return nil, "", err
	}

	views, err := s.hydratePosts(ctx, posts, viewerID)
	if err != nil {
		return nil, "", err
	}
	return views, encodeNextCursor(posts, limit), nil
}

// --- COMMENTAIRES ---

func (s *postService) CreateComment(ctx context.Context, authorID, postID, text string) (*domain.Comment, error) {
	if authorID == "" || text == "" {
		return nil, domain.ErrInvalidInput
	}
	// Le post doit exister (précondition fatale, pas de retry).
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:          uuid.New().String(),
		PostID:      postID,
		CommentedBy: authorID,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *postService) ListComments(ctx context.Context, postID string, limit int, cursor string) ([]*domain.CommentView, string, error) {
	cursorTime, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = clampLimit(limit)

	comments, err := s.comments.ListByPost(ctx, postID, limit, cursorTime)
	if err != nil {
		return nil, "", err
	}

	// Hydratation batch des auteurs (une seule requête users).
	authorIDs := make([]string, 0, len(comments))
	seen := make(map[string]bool)
	for _, c := range comments {
		if !seen[c.CommentedBy] {
			seen[c.CommentedBy] = true
			authorIDs = append(authorIDs, c.CommentedBy)
		}
	}
	authors, err := s.users.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, "", err
	}
	byID := make(map[string]*domain.User, len(authors))
	for _, u := range authors {
		byID[u.UID] = u
	}

	views := make([]*domain.CommentView, 0, len(comments))
	var nextCursor string
	for _, c := range comments {
		v := &domain.CommentView{Comment: *c}
		if u, ok := byID[c.CommentedBy]; ok {
			v.Username = u.Username
			v.ProfilePicURL = u.ProfilePicURL
		}
		views = append(views, v)
	}
	if len(comments) == limit {
		nextCursor = comments[len(comments)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return views, nextCursor, nil
}

// --- HELPERS ---

// hydratePosts enrichit les posts avec le profil de l'auteur et l'état de
// like du viewer, en deux requêtes batch (pas de N+1).
func (s *postService) hydratePosts(ctx context.Context, posts []*domain.Post, viewerID string) ([]*domain.PostView, error) {
	if len(posts) == 0 {
		return []*domain.PostView{}, nil
	}

	authorIDs := make([]string, 0, len(posts))
	postIDs := make([]string, 0, len(posts))
	seen := make(map[string]bool)
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if !seen[p.PostedBy] {
			seen[p.PostedBy] = true
			authorIDs = append(authorIDs, p.PostedBy)
		}
	}

	authors, err := s.users.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.User, len(authors))
	for _, u := range authors {
		byID[u.UID] = u
	}

	liked := map[string]bool{}
	if viewerID != "" {
		liked, err = s.graph.LikedSet(ctx, viewerID, postIDs)
		if err != nil {
			return nil, err
		}
	}

	views := make([]*domain.PostView, 0, len(posts))
	for _, p := range posts {
		v := &domain.PostView{Post: *p, IsLiked: liked[p.ID]}
		if u, ok := byID[p.PostedBy]; ok {
			v.Username = u.Username
			v.ProfilePicURL = u.ProfilePicURL
		}
		views = append(views, v)
	}
	return views, nil
}

// decodeCursor : le token est la date RFC3339Nano du dernier item vu.
// Token corrompu = erreur stricte (on ne repart pas du début en silence).
func decodeCursor(cursor string) (time.Time, error) {
	if cursor == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return time.Time{}, errors.Join(domain.ErrInvalidInput, errors.New("invalid page token"))
	}
	return t, nil
}

// encodeNextCursor : pas de page suivante si la page est incomplète.
func encodeNextCursor(posts []*domain.Post, limit int) string {
	if len(posts) < limit || len(posts) == 0 {
		return ""
	}
	return posts[len(posts)-1].CreatedAt.Format(time.RFC3339Nano)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultFeedLimit
	}
	return limit
}
