package user

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopassist/internal/auth"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:user_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func newTestService(t *testing.T) *Service {
	return NewService(setupUserTestDB(t), &auth.BcryptHasher{Cost: 4})
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Email: "  Ada@Example.COM ", FullName: "ada lovelace byron", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "AL", u.Initials())
	assert.NotEqual(t, "s3cretpass", u.PasswordHash)

	_, err = svc.Register(ctx, &RegisterRequest{Email: "ada@example.com", Password: "anotherpass"})
	assert.True(t, errors.Is(err, ErrEmailTaken))

	got, err := svc.Authenticate(ctx, "ADA@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong-pass")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cretpass")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "not-an-email", Password: "longenough"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.Register(ctx, &RegisterRequest{Email: "bob@example.com", Password: "short"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestInactiveUserCannotAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Email: "eve@example.com", Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(u).Update("is_active", false).Error)

	_, err = svc.Authenticate(ctx, "eve@example.com", "password1")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestEnsureStaff(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.EnsureStaff(ctx, "admin@example.com", "Shop Admin", "adminpass")
	require.NoError(t, err)
	assert.True(t, u.IsStaff)

	again, err := svc.EnsureStaff(ctx, "admin@example.com", "Shop Admin", "ignored")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	stored, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsStaff)

	_, err = svc.GetByID(ctx, 404)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInitials(t *testing.T) {
	cases := []struct {
		user User
		want string
	}{
		{User{FullName: "grace hopper", Email: "g@x.io"}, "GH"},
		{User{FullName: "Linus", Email: "l@x.io"}, "L"},
		{User{FullName: "  ", Email: "zed@x.io"}, "Z"},
		{User{}, ""},
	}
	for _, tc := range cases {
		if got := tc.user.Initials(); got != tc.want {
			t.Errorf("Initials(%q, %q) = %q, want %q", tc.user.FullName, tc.user.Email, got, tc.want)
		}
	}
}
