package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/zingsocial/social-core/internal/core/domain"
)

func userRow(uid, username string) *pgxmock.Rows {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"uid", "name", "username", "bio", "profile_pic_url",
		"post_count", "followers_count", "following_count", "created_at", "updated_at",
	}).AddRow(uid, "Name", username, "bio", "https://pic", int64(3), int64(10), int64(7), now, now)
}

func TestUserRepoGetByID(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+userColumns+` FROM users WHERE uid = $1`)).
		WithArgs("alice").
		WillReturnRows(userRow("alice", "alice_a"))

	u, err := repo.GetByID(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", u.UID)
	require.Equal(t, "alice_a", u.Username)
	require.Equal(t, int64(10), u.FollowersCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetByID_NotFound(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+userColumns+` FROM users WHERE uid = $1`)).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"uid"}))

	_, err := repo.GetByID(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetMany(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	rows := userRow("alice", "alice_a")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows.AddRow("bob", "Bob", "bob_b", "", "", int64(0), int64(0), int64(0), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+userColumns+` FROM users WHERE uid = ANY($1::text[]) ORDER BY username`)).
		WithArgs([]string{"alice", "bob"}).
		WillReturnRows(rows)

	users, err := repo.GetMany(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NoError(t, mock.ExpectationsWereMet())

	// Lot vide : pas de requête.
	users, err = repo.GetMany(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUserRepoUpdateProfile_PartialFields(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	bio := "nouvelle bio"
	// Seule la bio est fournie : le SET ne touche qu'elle (+ updated_at).
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET bio = @bio, updated_at = now() WHERE uid = @uid`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateProfile(context.Background(), domain.UpdateProfileCmd{UID: "alice", Bio: &bio})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// Aucun champ fourni : no-op sans requête.
	err = repo.UpdateProfile(context.Background(), domain.UpdateProfileCmd{UID: "alice"})
	require.NoError(t, err)
}

func TestUserRepoUpdateProfile_UsernameRace(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	username := "taken"
	// La contrainte unique rattrape la course perdue contre le check soft.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET username = @username, updated_at = now() WHERE uid = @uid`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.UpdateProfile(context.Background(), domain.UpdateProfileCmd{UID: "alice", Username: &username})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoUpdateProfile_UnknownUser(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	name := "X"
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name = @name, updated_at = now() WHERE uid = @uid`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateProfile(context.Background(), domain.UpdateProfileCmd{UID: "ghost", Name: &name})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoUsernameTaken(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("alice_a").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.UsernameTaken(context.Background(), "alice_a")
	require.NoError(t, err)
	require.True(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}
