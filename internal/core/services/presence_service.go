package services

import (
	"context"
	"errors"
	"time"

	"github.com/zingsocial/social-core/internal/core/domain"
	"github.com/zingsocial/social-core/internal/core/ports"
)

type presenceService struct {
	ephemeral ports.EphemeralPresence
	durable   ports.DurablePresence
}

func NewPresenceService(ephemeral ports.EphemeralPresence, durable ports.DurablePresence) ports.PresenceService {
	return &presenceService{ephemeral: ephemeral, durable: durable}
}

// GetPresence lit d'abord le store éphémère (autoritaire tant qu'une
// connexion est vivante), puis retombe sur le miroir durable. Aucune
// trace nulle part = offline.
func (s *presenceService) GetPresence(ctx context.Context, uid string) (*domain.Presence, error) {
	if uid == "" {
		return nil, domain.ErrInvalidInput
	}

	p, err := s.ephemeral.Get(ctx, uid)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	p, err = s.durable.Get(ctx, uid)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return &domain.Presence{UID: uid, State: domain.PresenceOffline, LastChange: time.Time{}}, nil
}
