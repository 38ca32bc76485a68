package eventbroker

import (
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// NatsConnectivityFeed adapte les changements d'état de la connexion NATS
// en signaux Connected/Disconnected pour le tracker de présence. C'est le
// canal temps réel de la plateforme : s'il est down, le store éphémère est
// considéré injoignable.
type NatsConnectivityFeed struct {
	events chan domain.ConnectivityEvent
	done   chan struct{}
}

func NewNatsConnectivityFeed(nc *nats.Conn) *NatsConnectivityFeed {
	f := &NatsConnectivityFeed{
		events: make(chan domain.ConnectivityEvent, 8),
		done:   make(chan struct{}),
	}

	statusCh := nc.StatusChanged(nats.CONNECTED, nats.RECONNECTING, nats.DISCONNECTED, nats.CLOSED)

	go func() {
		defer close(f.events)
		last := domain.Connected // la connexion initiale a déjà réussi
		for {
			select {
			case <-f.done:
				return
			case status, ok := <-statusCh:
				if !ok {
					return
				}
				ev := domain.Disconnected
				if status == nats.CONNECTED {
					ev = domain.Connected
				}
				// Dédoublonnage : RECONNECTING puis DISCONNECTED ne doivent
				// produire qu'un seul signal.
				if ev == last {
					continue
				}
				last = ev
				slog.Info("connectivity change", "nats_status", status.String())
				f.events <- ev
			}
		}
	}()

	return f
}

func (f *NatsConnectivityFeed) Events() <-chan domain.ConnectivityEvent {
	return f.events
}

// Close arrête la traduction des statuts (fin de session).
func (f *NatsConnectivityFeed) Close() {
	close(f.done)
}
