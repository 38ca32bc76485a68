package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zingsocial/social-core/internal/core/domain"
	"github.com/zingsocial/social-core/internal/core/ports"
)

type userService struct {
	users ports.UserRepository
	graph ports.GraphRepository
	blobs ports.BlobStore
}

func NewUserService(users ports.UserRepository, graph ports.GraphRepository, blobs ports.BlobStore) ports.UserService {
	return &userService{users: users, graph: graph, blobs: blobs}
}

// GetProfile renvoie l'utilisateur enrichi de l'état relationnel du viewer.
func (s *userService) GetProfile(ctx context.Context, uid, viewerID string) (*domain.Profile, error) {
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{User: *user}
	if viewerID != "" && viewerID != uid {
		following, err := s.graph.IsFollowing(ctx, viewerID, uid)
		if err != nil {
			return nil, err
		}
		profile.IsFollowing = following
	}
	return profile, nil
}

// UpdateProfile applique les champs fournis. Un nouvel avatar est uploadé
// d'abord ; l'ancien blob est supprimé en best-effort (sauf l'avatar par
// défaut, partagé entre tous les comptes).
func (s *userService) UpdateProfile(ctx context.Context, cmd domain.UpdateProfileCmd, avatar *ports.ImageUpload) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, cmd.UID)
	if err != nil {
		return nil, err
	}

	if cmd.Username != nil && *cmd.Username != user.Username {
		if err := domain.ValidateUsername(*cmd.Username); err != nil {
			return nil, err
		}
		taken, err := s.users.UsernameTaken(ctx, *cmd.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrAlreadyExists
		}
	}

	if avatar != nil {
		url, err := s.blobs.Upload(ctx, fmt.Sprintf("profilePics/%s", cmd.UID), avatar.Reader, avatar.Size, avatar.ContentType)
		if err != nil {
			return nil, fmt.Errorf("avatar upload: %w", err)
		}
		cmd.AvatarURL = &url

		if user.ProfilePicURL != "" && user.ProfilePicURL != domain.DefaultProfilePicURL && user.ProfilePicURL != url {
			if err := s.blobs.Delete(ctx, user.ProfilePicURL); err != nil {
				slog.Warn("old avatar delete failed", "uid", cmd.UID, "url", user.ProfilePicURL, "error", err)
			}
		}
	}

	if err := s.users.UpdateProfile(ctx, cmd); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, cmd.UID)
}

func (s *userService) ListFollowers(ctx context.Context, uid string) ([]*domain.User, error) {
	ids, err := s.graph.FollowerIDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.users.GetMany(ctx, ids)
}

func (s *userService) ListFollowing(ctx context.Context, uid string) ([]*domain.User, error) {
	ids, err := s.graph.FollowingIDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.users.GetMany(ctx, ids)
}

func (s *userService) ListPostLikers(ctx context.Context, postID string) ([]*domain.User, error) {
	ids, err := s.graph.LikerIDs(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.users.GetMany(ctx, ids)
}

func (s *userService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return false, err
	}
	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return false, err
	}
	return !taken, nil
}
