package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	token, user, err := svc.Register(ctx, "Jamie", "jamie@example.com", "supersecret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "jamie@example.com", user.Email)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	loginToken, loginUser, err := svc.Login(ctx, "Jamie@Example.com", "supersecret1")
	require.NoError(t, err)
	assert.NotEmpty(t, loginToken)
	assert.Equal(t, user.ID, loginUser.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "supersecret1")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Other", "JAMIE@example.com", "supersecret2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "short")
	assert.Error(t, err)

	_, _, err = svc.Register(ctx, "", "jamie@example.com", "supersecret1")
	assert.Error(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "supersecret1")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "jamie@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "supersecret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, "test-secret")
	other := NewAuthService(db, "different-secret")
	ctx := context.Background()

	token, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "supersecret1")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
