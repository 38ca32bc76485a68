package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/zingsocial/social-core/internal/core/domain"
)

// GraphRepo implémente les transactions atomiques du graphe social :
// mutation des sets de relations ET des compteurs dénormalisés dans une
// seule transaction. Un échec annule tout — aucun fan-out partiel n'est
// jamais observable.
type GraphRepo struct{ db *DB }

func NewGraphRepo(db *DB) *GraphRepo { return &GraphRepo{db: db} }

// ToggleFollow bascule la relation actor -> target.
//
// Les deux lignes users sont verrouillées (FOR UPDATE, ordre déterministe
// pour éviter les deadlocks croisés) : les toggles concurrents sur la même
// paire sont linéarisés. Les 4 écritures — Followers(target),
// Following(actor), followersCount(target), followingCount(actor) —
// partent dans la même transaction.
func (r *GraphRepo) ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	var nowFollowing bool

	err := runTx(ctx, r.db.Pool, func(tx pgx.Tx) error {
		// Précondition : les deux utilisateurs existent. Document manquant
		// = échec fatal, pas de retry.
		rows, err := tx.Query(ctx,
			`SELECT uid FROM users WHERE uid = ANY($1::text[]) ORDER BY uid FOR UPDATE`,
			[]string{actorID, targetID})
		if err != nil {
			return err
		}
		locked := 0
		for rows.Next() {
			var uid string
			if err := rows.Scan(&uid); err != nil {
				rows.Close()
				return err
			}
			locked++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if locked != 2 {
			return domain.ErrUserNotFound
		}

		var isFollowing bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM user_followers WHERE user_id = $1 AND follower_id = $2)`,
			targetID, actorID).Scan(&isFollowing)
		if err != nil {
			return err
		}

		if isFollowing {
			// unfollow
			if _, err := tx.Exec(ctx,
				`DELETE FROM user_followers WHERE user_id = $1 AND follower_id = $2`,
				targetID, actorID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`DELETE FROM user_following WHERE user_id = $1 AND followee_id = $2`,
				actorID, targetID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE users SET followers_count = followers_count - 1 WHERE uid = $1`,
				targetID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE users SET following_count = following_count - 1 WHERE uid = $1`,
				actorID); err != nil {
				return err
			}
			nowFollowing = false
		} else {
			// follow
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_followers (user_id, follower_id) VALUES ($1, $2)`,
				targetID, actorID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_following (user_id, followee_id) VALUES ($1, $2)`,
				actorID, targetID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE users SET followers_count = followers_count + 1 WHERE uid = $1`,
				targetID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE users SET following_count = following_count + 1 WHERE uid = $1`,
				actorID); err != nil {
				return err
			}
			nowFollowing = true
		}
		return nil
	})

	if err != nil {
		return false, fmt.Errorf("toggle follow %s -> %s: %w", actorID, targetID, err)
	}
	return nowFollowing, nil
}

// ToggleLike : appartenance de actor au set likedBy + ±1 sur likeCount,
// une seule transaction. Le verrou sur la ligne post linéarise les likers
// concurrents (pas de lost update sur le compteur).
func (r *GraphRepo) ToggleLike(ctx context.Context, actorID, postID string) (bool, error) {
	var nowLiked bool

	err := runTx(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPostNotFound
			}
			return err
		}

		var isLiked bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2)`,
			postID, actorID).Scan(&isLiked)
		if err != nil {
			return err
		}

		if isLiked {
			if _, err := tx.Exec(ctx,
				`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
				postID, actorID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE posts SET like_count = like_count - 1 WHERE id = $1`,
				postID); err != nil {
				return err
			}
			nowLiked = false
		} else {
			if _, err := tx.Exec(ctx,
				`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`,
				postID, actorID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE posts SET like_count = like_count + 1 WHERE id = $1`,
				postID); err != nil {
				return err
			}
			nowLiked = true
		}
		return nil
	})

	if err != nil {
		return false, fmt.Errorf("toggle like %s on %s: %w", actorID, postID, err)
	}
	return nowLiked, nil
}

// --- LECTURES (hors transaction) ---

func (r *GraphRepo) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	var following bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_followers WHERE user_id = $1 AND follower_id = $2)`,
		targetID, actorID).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("db: is following: %w", err)
	}
	return following, nil
}

func (r *GraphRepo) FollowerIDs(ctx context.Context, uid string) ([]string, error) {
	return r.collectIDs(ctx,
		`SELECT follower_id FROM user_followers WHERE user_id = $1 ORDER BY created_at DESC`, uid)
}

func (r *GraphRepo) FollowingIDs(ctx context.Context, uid string) ([]string, error) {
	return r.collectIDs(ctx,
		`SELECT followee_id FROM user_following WHERE user_id = $1 ORDER BY created_at DESC`, uid)
}

func (r *GraphRepo) LikerIDs(ctx context.Context, postID string) ([]string, error) {
	return r.collectIDs(ctx,
		`SELECT user_id FROM post_likes WHERE post_id = $1 ORDER BY created_at DESC`, postID)
}

func (r *GraphRepo) LikedSet(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT post_id FROM post_likes WHERE user_id = $1 AND post_id = ANY($2::text[])`,
		viewerID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("db: liked set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		liked[id] = true
	}
	return liked, rows.Err()
}

func (r *GraphRepo) collectIDs(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db: collect ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
