package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/zingsocial/social-core/internal/core/domain"
)

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// Structures des events (contract implicite avec les consommateurs :
// fan-out de feed, notifications, indexation search).

type FollowToggledEvent struct {
	ActorID   string    `json:"actor_id"`
	TargetID  string    `json:"target_id"`
	Following bool      `json:"following"`
	At        time.Time `json:"at"`
}

type PostCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type PostLikedEvent struct {
	ActorID string    `json:"actor_id"`
	PostID  string    `json:"post_id"`
	Liked   bool      `json:"liked"`
	At      time.Time `json:"at"`
}

func (p *NatsPublisher) PublishFollowToggled(ctx context.Context, actorID, targetID string, following bool) error {
	subject := "graph.follow"
	if !following {
		subject = "graph.unfollow"
	}
	return p.publish(ctx, subject, FollowToggledEvent{
		ActorID:   actorID,
		TargetID:  targetID,
		Following: following,
		At:        time.Now().UTC(),
	})
}

func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, "post.created", PostCreatedEvent{
		ID:        post.ID,
		AuthorID:  post.PostedBy,
		Caption:   post.Caption,
		ImageURL:  post.ImageURL,
		CreatedAt: post.CreatedAt,
	})
}

func (p *NatsPublisher) PublishPostDeleted(ctx context.Context, postID string) error {
	return p.nc.Publish("post.deleted", []byte(postID))
}

func (p *NatsPublisher) PublishPostLiked(ctx context.Context, actorID, postID string, liked bool) error {
	return p.publish(ctx, "post.liked", PostLikedEvent{
		ActorID: actorID,
		PostID:  postID,
		Liked:   liked,
		At:      time.Now().UTC(),
	})
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Injection du trace ID dans les headers NATS : le contexte de la
	// requête suit l'event jusqu'aux consommateurs.
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("📢 Publishing event", "subject", subject)
	return p.nc.PublishMsg(msg)
}
