package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zingsocial/social-core/internal/core/domain"
	"github.com/zingsocial/social-core/internal/core/ports"
)

// PresenceTracker est la machine à états online/offline.
//
// Deux étages :
//   - le store éphémère fait autorité et s'auto-répare : SetOnline arme un
//     hook de déconnexion côté serveur (expiration), qui bascule l'état à
//     offline même si le process est tué sans passer par ici ;
//   - le miroir durable est une projection best-effort pour les lecteurs
//     qui ne sont pas abonnés au temps réel.
//
// Le tracker est une tâche process-scoped avec un cycle de vie explicite
// (Start/Stop), enregistrée une fois au démarrage de la session — pas un
// listener détaché sans propriétaire.
type PresenceTracker struct {
	feed      ports.ConnectivityFeed
	ephemeral ports.EphemeralPresence
	durable   ports.DurablePresence
	heartbeat time.Duration

	mu        sync.Mutex
	tracked   map[string]bool
	connected bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPresenceTracker(
	feed ports.ConnectivityFeed,
	ephemeral ports.EphemeralPresence,
	durable ports.DurablePresence,
	heartbeat time.Duration,
) *PresenceTracker {
	return &PresenceTracker{
		feed:      feed,
		ephemeral: ephemeral,
		durable:   durable,
		heartbeat: heartbeat,
		tracked:   make(map[string]bool),
	}
}

// Start lance la boucle d'événements. Une seule souscription au feed pour
// toute la durée du process.
func (t *PresenceTracker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	// On démarre optimiste : le feed corrigera si le lien est mort.
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()

	go t.run(ctx)
}

// Stop coupe la boucle et attend sa fin. Les sessions encore trackées
// passent offline proprement avant de rendre la main.
func (t *PresenceTracker) Stop(ctx context.Context) {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done

	for _, uid := range t.trackedIDs() {
		t.goOffline(ctx, uid)
	}
}

// Track déclare une session vivante pour uid : état online immédiat si le
// lien est up, sinon la reconnexion s'en chargera.
func (t *PresenceTracker) Track(ctx context.Context, uid string) error {
	t.mu.Lock()
	t.tracked[uid] = true
	connected := t.connected
	t.mu.Unlock()

	if !connected {
		return nil
	}
	return t.goOnline(ctx, uid)
}

// Untrack : déconnexion propre (l'inverse de Track).
func (t *PresenceTracker) Untrack(ctx context.Context, uid string) error {
	t.mu.Lock()
	delete(t.tracked, uid)
	t.mu.Unlock()

	return t.goOffline(ctx, uid)
}

func (t *PresenceTracker) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-t.feed.Events():
			if !ok {
				return
			}
			t.handle(ctx, ev)

		case <-ticker.C:
			// Ré-armement périodique du hook de déconnexion tant que le
			// lien est vivant. Si le process meurt, le hook expire côté
			// serveur et l'état bascule offline sans nous.
			t.mu.Lock()
			connected := t.connected
			t.mu.Unlock()
			if !connected {
				continue
			}
			for _, uid := range t.trackedIDs() {
				if err := t.ephemeral.Heartbeat(ctx, uid); err != nil {
					slog.Warn("presence heartbeat failed", "uid", uid, "error", err)
				}
			}
		}
	}
}

func (t *PresenceTracker) handle(ctx context.Context, ev domain.ConnectivityEvent) {
	switch ev {
	case domain.Connected:
		t.mu.Lock()
		t.connected = true
		t.mu.Unlock()

		slog.Info("connectivity restored, re-arming presence", "sessions", len(t.trackedIDs()))
		for _, uid := range t.trackedIDs() {
			if err := t.goOnline(ctx, uid); err != nil {
				slog.Warn("presence re-arm failed", "uid", uid, "error", err)
			}
		}

	case domain.Disconnected:
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()

		// Plus de chemin vers le store éphémère : son hook fera son travail
		// côté serveur. On écrit offline directement dans le miroir durable.
		slog.Info("connectivity lost, mirroring offline", "sessions", len(t.trackedIDs()))
		for _, uid := range t.trackedIDs() {
			if err := t.durable.Set(ctx, uid, domain.PresenceOffline, time.Now().UTC()); err != nil {
				slog.Warn("durable offline mirror failed", "uid", uid, "error", err)
			}
		}
	}
}

// goOnline : hook armé + online éphémère, puis miroir durable.
func (t *PresenceTracker) goOnline(ctx context.Context, uid string) error {
	if err := t.ephemeral.SetOnline(ctx, uid); err != nil {
		return err
	}
	if err := t.durable.Set(ctx, uid, domain.PresenceOnline, time.Now().UTC()); err != nil {
		slog.Warn("durable online mirror failed", "uid", uid, "error", err)
	}
	return nil
}

func (t *PresenceTracker) goOffline(ctx context.Context, uid string) error {
	if err := t.ephemeral.SetOffline(ctx, uid); err != nil {
		slog.Warn("ephemeral offline failed", "uid", uid, "error", err)
	}
	return t.durable.Set(ctx, uid, domain.PresenceOffline, time.Now().UTC())
}

func (t *PresenceTracker) trackedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.tracked))
	for uid := range t.tracked {
		ids = append(ids, uid)
	}
	return ids
}
