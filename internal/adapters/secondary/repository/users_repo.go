package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zingsocial/social-core/internal/core/domain"
)

// sqlUser est le DTO interne : tampon entre la base et le domaine.
type sqlUser struct {
	UID            string    `db:"uid"`
	Name           string    `db:"name"`
	Username       string    `db:"username"`
	Bio            string    `db:"bio"`
	ProfilePicURL  string    `db:"profile_pic_url"`
	PostCount      int64     `db:"post_count"`
	FollowersCount int64     `db:"followers_count"`
	FollowingCount int64     `db:"following_count"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const userColumns = `uid, name, username, bio, profile_pic_url, post_count, followers_count, following_count, created_at, updated_at`

type UserRepo struct{ db *DB }

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) GetByID(ctx context.Context, uid string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`

	var u sqlUser
	err := r.db.Pool.QueryRow(ctx, q, uid).Scan(
		&u.UID, &u.Name, &u.Username, &u.Bio, &u.ProfilePicURL,
		&u.PostCount, &u.FollowersCount, &u.FollowingCount, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound // Traduction technique -> Domaine
		}
		return nil, fmt.Errorf("db: get user by id: %w", err)
	}
	return r.toDomain(&u), nil
}

// GetMany hydrate un lot d'uids en une seule requête, trié par username
// (l'ordre d'affichage des listes de followers/likers).
func (r *UserRepo) GetMany(ctx context.Context, uids []string) ([]*domain.User, error) {
	if len(uids) == 0 {
		return []*domain.User{}, nil
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE uid = ANY($1::text[]) ORDER BY username`

	rows, err := r.db.Pool.Query(ctx, q, uids)
	if err != nil {
		return nil, fmt.Errorf("db: get many users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u sqlUser
		if err := rows.Scan(
			&u.UID, &u.Name, &u.Username, &u.Bio, &u.ProfilePicURL,
			&u.PostCount, &u.FollowersCount, &u.FollowingCount, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, r.toDomain(&u))
	}
	return users, rows.Err()
}

// UpdateProfile n'écrit que les champs fournis (pointeurs non nil).
func (r *UserRepo) UpdateProfile(ctx context.Context, cmd domain.UpdateProfileCmd) error {
	sets := make([]string, 0, 4)
	args := pgx.NamedArgs{"uid": cmd.UID}

	if cmd.Name != nil {
		sets = append(sets, "name = @name")
		args["name"] = *cmd.Name
	}
	if cmd.Username != nil {
		sets = append(sets, "username = @username")
		args["username"] = *cmd.Username
	}
	if cmd.Bio != nil {
		sets = append(sets, "bio = @bio")
		args["bio"] = *cmd.Bio
	}
	if cmd.AvatarURL != nil {
		sets = append(sets, "profile_pic_url = @profile_pic_url")
		args["profile_pic_url"] = *cmd.AvatarURL
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")

	q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE uid = @uid`

	tag, err := r.db.Pool.Exec(ctx, q, args)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists // username pris (race avec le check soft)
		}
		return fmt.Errorf("db: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("db: username taken: %w", err)
	}
	return taken, nil
}

func (r *UserRepo) toDomain(u *sqlUser) *domain.User {
	return &domain.User{
		UID:            u.UID,
		Name:           u.Name,
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicURL:  u.ProfilePicURL,
		PostCount:      u.PostCount,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
