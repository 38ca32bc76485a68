// Package realtime contient l'adapter du store de présence éphémère.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zingsocial/social-core/internal/core/domain"
)

// RedisPresence est le store éphémère, autoritaire et auto-réparant.
//
// Le hook de déconnexion côté serveur est rendu par le TTL de la clé :
// SetOnline écrit l'état avec expiration, Heartbeat la ré-arme. Si le
// process est tué (pas de SetOffline propre), la clé expire toute seule et
// les lecteurs voient offline — aucun code client n'a besoin de tourner.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresence(client *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, ttl: ttl}
}

type presenceEntry struct {
	State      string    `json:"state"`
	LastChange time.Time `json:"last_change"`
}

func presenceKey(uid string) string { return fmt.Sprintf("presence:%s", uid) }

// SetOnline écrit online ET arme le hook (expiration = ttl).
func (r *RedisPresence) SetOnline(ctx context.Context, uid string) error {
	payload, err := json.Marshal(presenceEntry{State: string(domain.PresenceOnline), LastChange: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, presenceKey(uid), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set online: %w", err)
	}
	return nil
}

// Heartbeat ré-arme le hook. Si la clé a déjà expiré entre deux battements
// (pause GC, lien dégradé), on repasse par SetOnline pour la recréer.
func (r *RedisPresence) Heartbeat(ctx context.Context, uid string) error {
	ok, err := r.client.Expire(ctx, presenceKey(uid), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: heartbeat: %w", err)
	}
	if !ok {
		return r.SetOnline(ctx, uid)
	}
	return nil
}

// SetOffline : déconnexion propre, la clé part tout de suite.
func (r *RedisPresence) SetOffline(ctx context.Context, uid string) error {
	if err := r.client.Del(ctx, presenceKey(uid)).Err(); err != nil {
		return fmt.Errorf("redis: set offline: %w", err)
	}
	return nil
}

// Get renvoie ErrNotFound si aucune entrée vivante (clé absente ou expirée).
func (r *RedisPresence) Get(ctx context.Context, uid string) (*domain.Presence, error) {
	raw, err := r.client.Get(ctx, presenceKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get presence: %w", err)
	}

	var entry presenceEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Donnée corrompue : on la traite comme absente plutôt que de
		// propager du bruit aux lecteurs.
		return nil, domain.ErrNotFound
	}
	return &domain.Presence{
		UID:        uid,
		State:      domain.PresenceState(entry.State),
		LastChange: entry.LastChange,
	}, nil
}
