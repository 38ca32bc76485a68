package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zingsocial/social-core/internal/core/domain"
)

// PresenceRepo est le miroir DURABLE de la présence : une projection
// best-effort pour les lecteurs non abonnés au temps réel. La copie
// éphémère (Redis) fait autorité tant qu'une connexion est vivante.
type PresenceRepo struct{ db *DB }

func NewPresenceRepo(db *DB) *PresenceRepo { return &PresenceRepo{db: db} }

func (r *PresenceRepo) Set(ctx context.Context, uid string, state domain.PresenceState, at time.Time) error {
	q := `
		INSERT INTO user_presence (uid, state, last_change)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE SET state = EXCLUDED.state, last_change = EXCLUDED.last_change
	`
	if _, err := r.db.Pool.Exec(ctx, q, uid, string(state), at); err != nil {
		return fmt.Errorf("db: set presence: %w", err)
	}
	return nil
}

func (r *PresenceRepo) Get(ctx context.Context, uid string) (*domain.Presence, error) {
	var state string
	var lastChange time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT state, last_change FROM user_presence WHERE uid = $1`, uid).
		Scan(&state, &lastChange)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db: get presence: %w", err)
	}
	return &domain.Presence{UID: uid, State: domain.PresenceState(state), LastChange: lastChange}, nil
}
