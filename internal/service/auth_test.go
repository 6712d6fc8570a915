package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/model"
)

const testSecret = "test-secret"

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repos := newRepos()
	svc := NewAuthService(repos.Users, testSecret, time.Hour)
	ctx := context.Background()

	token, user, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ava", Email: "Ava@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ava@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "secret1", user.Password)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)

	_, logged, err := svc.Login(ctx, dto.LoginRequest{Email: "AVA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = svc.Login(ctx, dto.LoginRequest{Email: "ava@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	repos := newRepos()
	svc := NewAuthService(repos.Users, testSecret, time.Hour)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, dto.RegisterRequest{Email: "a@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrMissingRegisterFields)

	_, _, err = svc.Register(ctx, dto.RegisterRequest{Name: "A", Email: "a@example.com", Password: "12345"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, _, err = svc.Register(ctx, dto.RegisterRequest{Name: "A", Email: "a@example.com", Password: "123456"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, dto.RegisterRequest{Name: "B", Email: "A@EXAMPLE.COM", Password: "123456"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, _, err = svc.Login(ctx, dto.LoginRequest{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAuthService_ParseTokenRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(newRepos().Users, testSecret, time.Hour)

	_, err := svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(newRepos().Users, "other-secret", time.Hour)
	forged, err := other.generateToken(&model.User{ID: uuid.New(), Role: model.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	repos := newRepos()
	svc := NewAuthService(repos.Users, testSecret, time.Hour)
	ctx := context.Background()

	_, user, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ava", Email: "ava@example.com", Password: "secret1"})
	require.NoError(t, err)
	seedUser(t, repos.Users, "taken@example.com", model.RoleUser)

	_, _, err = svc.UpdateProfile(ctx, user.ID, dto.UpdateProfileRequest{Email: "taken@example.com"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, updated, err := svc.UpdateProfile(ctx, user.ID, dto.UpdateProfileRequest{
		Name:      "Ava Laurent",
		Password:  "newsecret",
		Addresses: []model.Address{{Street: "1 Rue Cambon", City: "Paris", IsDefault: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ava Laurent", updated.Name)
	assert.Equal(t, "ava@example.com", updated.Email)
	require.Len(t, updated.Addresses, 1)

	_, _, err = svc.Login(ctx, dto.LoginRequest{Email: "ava@example.com", Password: "newsecret"})
	assert.NoError(t, err)

	_, err = svc.Profile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
