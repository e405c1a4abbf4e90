package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"carhub/internal/repository"
	"carhub/internal/repository/sqlite"
)

func openServiceDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, sqlite.NewUserRepository(db).Init(ctx))
	require.NoError(t, sqlite.NewCarRepository(db).Init(ctx))
	require.NoError(t, sqlite.NewCarImageRepository(db).Init(ctx))
	return db
}

func newUserService(t *testing.T) UserService {
	t.Helper()
	return NewUserService(sqlite.NewUserRepository(openServiceDB(t)))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Empty(t, user.PasswordHash)

	authed, err := svc.Authenticate(ctx, "alice", "password1")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
	require.Empty(t, authed.PasswordHash)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "password2")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "password1")
	require.ErrorIs(t, err, ErrUserValidation)

	_, err = svc.Register(ctx, "alice", "")
	require.ErrorIs(t, err, ErrUserValidation)
}

func TestRegisterAcceptsShortPassword(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	authed, err := svc.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.Equal(t, "alice", authed.Username)
}

func TestAuthenticateUniformFailure(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	// unknown user and wrong password are indistinguishable
	_, unknownErr := svc.Authenticate(ctx, "ghost", "password1")
	_, wrongErr := svc.Authenticate(ctx, "alice", "wrong-password")
	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestGetByIDSanitizes(t *testing.T) {
	db := openServiceDB(t)
	svc := NewUserService(sqlite.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Empty(t, got.PasswordHash)

	_, err = svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}
