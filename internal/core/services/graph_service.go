package services

import (
	"context"
	"log/slog"

	"github.com/zingsocial/social-core/internal/core/domain"
	"github.com/zingsocial/social-core/internal/core/ports"
)

type graphService struct {
	repo      ports.GraphRepository
	publisher ports.EventPublisher
}

func NewGraphService(repo ports.GraphRepository, pub ports.EventPublisher) ports.GraphService {
	return &graphService{repo: repo, publisher: pub}
}

// ToggleFollow bascule la relation actor -> target.
// Les 4 écritures (2 sets + 2 compteurs) sont une seule transaction du
// repo : en cas d'échec, rien n'est observable (pas de fan-out partiel).
func (s *graphService) ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	if actorID == "" || targetID == "" {
		return false, domain.ErrInvalidInput
	}
	if actorID == targetID {
		return false, domain.ErrSelfFollow
	}

	following, err := s.repo.ToggleFollow(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}

	// Publication best-effort : la donnée est commitée, on ne fait pas
	// échouer le caller si le broker est lent/down.
	if err := s.publisher.PublishFollowToggled(ctx, actorID, targetID, following); err != nil {
		slog.Warn("follow event publish failed", "actor_id", actorID, "target_id", targetID, "error", err)
	}

	return following, nil
}

// ToggleLike bascule l'appartenance de actor au set likedBy du post,
// avec le ±1 sur likeCount dans la même transaction.
func (s *graphService) ToggleLike(ctx context.Context, actorID, postID string) (bool, error) {
	if actorID == "" || postID == "" {
		return false, domain.ErrInvalidInput
	}

	liked, err := s.repo.ToggleLike(ctx, actorID, postID)
	if err != nil {
		return false, err
	}

	if err := s.publisher.PublishPostLiked(ctx, actorID, postID, liked); err != nil {
		slog.Warn("like event publish failed", "actor_id", actorID, "post_id", postID, "error", err)
	}

	return liked, nil
}
