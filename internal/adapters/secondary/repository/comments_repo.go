package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zingsocial/social-core/internal/core/domain"
)

type CommentRepo struct{ db *DB }

func NewCommentRepo(db *DB) *CommentRepo { return &CommentRepo{db: db} }

func (r *CommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	q := `INSERT INTO comments (id, post_id, commented_by, body, created_at) VALUES (@id, @post_id, @commented_by, @body, @created_at)`

	args := pgx.NamedArgs{
		"id":           comment.ID,
		"post_id":      comment.PostID,
		"commented_by": comment.CommentedBy,
		"body":         comment.Text,
		"created_at":   comment.CreatedAt,
	}

	_, err := r.db.Pool.Exec(ctx, q, args)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrPostNotFound
		}
		return fmt.Errorf("db: create comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) ListByPost(ctx context.Context, postID string, limit int, cursorTime time.Time) ([]*domain.Comment, error) {
	const cols = `id, post_id, commented_by, body, created_at`

	var rows pgx.Rows
	var err error
	if cursorTime.IsZero() {
		rows, err = r.db.Pool.Query(ctx,
			`SELECT `+cols+` FROM comments WHERE post_id = $1 ORDER BY created_at DESC LIMIT $2`,
			postID, limit)
	} else {
		rows, err = r.db.Pool.Query(ctx,
			`SELECT `+cols+` FROM comments WHERE post_id = $1 AND created_at < $2 ORDER BY created_at DESC LIMIT $3`,
			postID, cursorTime, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("db: list comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.CommentedBy, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
