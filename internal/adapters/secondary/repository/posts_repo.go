package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zingsocial/social-core/internal/core/domain"
)

const postColumns = `id, posted_by, caption, image_url, like_count, created_at`

type PostRepo struct{ db *DB }

func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

// Create : insertion du post + postCount+1 du propriétaire, une seule
// transaction. Le set de likes naît vide (zéro ligne dans post_likes).
func (r *PostRepo) Create(ctx context.Context, post *domain.Post) error {
	err := runTx(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO posts (id, posted_by, caption, image_url, like_count, created_at) VALUES ($1, $2, $3, $4, 0, $5)`,
			post.ID, post.PostedBy, post.Caption, post.ImageURL, post.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrUserNotFound
			}
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE users SET post_count = post_count + 1 WHERE uid = $1`, post.PostedBy)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create post %s: %w", post.ID, err)
	}
	return nil
}

// Delete : post + likes + postCount-1 dans une transaction. Le set de
// likes est supprimé explicitement, pas de record orphelin.
func (r *PostRepo) Delete(ctx context.Context, post *domain.Post) error {
	err := runTx(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1`, post.ID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, post.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrPostNotFound
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET post_count = post_count - 1 WHERE uid = $1`, post.PostedBy); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", post.ID, err)
	}
	return nil
}

func (r *PostRepo) GetByID(ctx context.Context, postID string) (*domain.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	var p domain.Post
	err := r.db.Pool.QueryRow(ctx, q, postID).Scan(
		&p.ID, &p.PostedBy, &p.Caption, &p.ImageURL, &p.LikeCount, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("db: get post: %w", err)
	}
	return &p, nil
}

// ListByAuthor : pagination keyset. cursorTime est la date du dernier post
// vu ; zéro valeur = première page.
func (r *PostRepo) ListByAuthor(ctx context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	if cursorTime.IsZero() {
		q := `SELECT ` + postColumns + ` FROM posts WHERE posted_by = $1 ORDER BY created_at DESC LIMIT $2`
		rows, err := r.db.Pool.Query(ctx, q, authorID, limit)
		if err != nil {
			return nil, fmt.Errorf("db: list by author: %w", err)
		}
		defer rows.Close()
		return collectPosts(rows)
	}

	q := `SELECT ` + postColumns + ` FROM posts WHERE posted_by = $1 AND created_at < $2 ORDER BY created_at DESC LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, authorID, cursorTime, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list by author: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// ListByAuthors : le feed home (posts de tous les suivis), même keyset.
func (r *PostRepo) ListByAuthors(ctx context.Context, authorIDs []string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	if len(authorIDs) == 0 {
		return []*domain.Post{}, nil
	}

	if cursorTime.IsZero() {
		q := `SELECT ` + postColumns + ` FROM posts WHERE posted_by = ANY($1::text[]) ORDER BY created_at DESC LIMIT $2`
		rows, err := r.db.Pool.Query(ctx, q, authorIDs, limit)
		if err != nil {
			return nil, fmt.Errorf("db: list by authors: %w", err)
		}
		defer rows.Close()
		return collectPosts(rows)
	}

	q := `SELECT ` + postColumns + ` FROM posts WHERE posted_by = ANY($1::text[]) AND created_at < $2 ORDER BY created_at DESC LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, authorIDs, cursorTime, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list by authors: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func collectPosts(rows pgx.Rows) ([]*domain.Post, error) {
	var posts []*domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.PostedBy, &p.Caption, &p.ImageURL, &p.LikeCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}
