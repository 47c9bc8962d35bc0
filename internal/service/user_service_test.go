package service

import (
	"context"
	"testing"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"
	"goldshop/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	store := memory.NewStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(username, password string) bool {
			user, _, err := svc.Register(ctx, RegisterInput{Username: username + uuid.NewString()[:4], Password: password, Name: "A", Family: "B"})
			if err != nil {
				t.Logf("Registration failed: %v", err)
				return false
			}

			stored, err := store.Users().FindByID(ctx, user.ID)
			if err != nil {
				return false
			}
			if stored.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			return bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z]{5,10}`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_JWTTokensContainRequiredClaims(t *testing.T) {
	store := memory.NewStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("access tokens carry user_id, role and expiry", prop.ForAll(
		func(username string) bool {
			user, tokens, err := svc.Register(ctx, RegisterInput{Username: username + uuid.NewString()[:4], Password: "password123", Name: "A", Family: "B"})
			if err != nil {
				return false
			}

			claims, err := svc.ValidateToken(tokens.AccessToken)
			if err != nil {
				t.Logf("Token validation failed: %v", err)
				return false
			}

			return claims.UserID == user.ID &&
				claims.Role == domain.RoleUser &&
				claims.ExpiresAt != nil &&
				claims.ExpiresAt.After(time.Now()) &&
				tokens.RefreshToken != ""
		},
		gen.RegexMatch(`[a-z]{5,10}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestUserService(memory.NewStore())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Username: "ali", Password: "password123", Name: "Ali", Family: "R"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, RegisterInput{Username: "ali", Password: "password456", Name: "Ali", Family: "R"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_RejectsBadPhone(t *testing.T) {
	svc := newTestUserService(memory.NewStore())

	_, _, err := svc.Register(context.Background(), RegisterInput{Username: "ali", Password: "password123", Phone: "12345"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.Register(context.Background(), RegisterInput{Username: "reza", Password: "password123", Phone: "+989121234567"})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc := newTestUserService(memory.NewStore())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Username: "sara", Password: "password123"})
	require.NoError(t, err)

	user, tokens, err := svc.Login(ctx, "sara", "password123")
	require.NoError(t, err)
	assert.Equal(t, "sara", user.Username)
	assert.NotEmpty(t, tokens.AccessToken)

	_, _, err = svc.Login(ctx, "sara", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc := newTestUserService(memory.NewStore())
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, RegisterInput{Username: "nima", Password: "password123"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "a rotated token cannot be reused")

	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_LosingRotationIsRejected(t *testing.T) {
	store := memory.NewStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, RegisterInput{Username: "rotor", Password: "password123"})
	require.NoError(t, err)

	// Another rotation revoked the token after this one read it as live.
	require.NoError(t, store.RefreshTokens().Revoke(ctx, tokens.RefreshToken))
	assert.ErrorIs(t, store.RefreshTokens().Revoke(ctx, tokens.RefreshToken), repository.ErrRefreshTokenRevoked)

	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.NoError(t, svc.Logout(ctx, tokens.RefreshToken), "logging out twice is harmless")
}

func TestRefresh_ExpiredToken(t *testing.T) {
	store := memory.NewStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	user := seedUser(t, store)

	require.NoError(t, store.RefreshTokens().Create(ctx, &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := svc.Refresh(ctx, "stale")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestLogout_InvalidatesRefreshToken(t *testing.T) {
	svc := newTestUserService(memory.NewStore())
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, RegisterInput{Username: "mina", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))
	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Unknown tokens are already logged out.
	assert.NoError(t, svc.Logout(ctx, "never-issued"))
}

func TestValidateToken_RejectsForeignSignature(t *testing.T) {
	svc := newTestUserService(memory.NewStore())

	claims := &Claims{
		UserID: uuid.New(),
		Role:   domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestUserService(memory.NewStore())

	claims := &Claims{
		UserID: uuid.New(),
		Role:   domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTConfig.Secret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestUpdateUser(t *testing.T) {
	store := memory.NewStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, RegisterInput{Username: "omid", Password: "password123", Name: "Omid"})
	require.NoError(t, err)

	name, password := "Omid Reza", "new-password-1"
	updated, err := svc.UpdateUser(ctx, user.ID, UpdateUserInput{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Omid Reza", updated.Name)
	assert.Equal(t, domain.RoleUser, updated.Role)

	_, _, err = svc.Login(ctx, "omid", "new-password-1")
	assert.NoError(t, err)

	bad := "not-a-phone"
	_, err = svc.UpdateUser(ctx, user.ID, UpdateUserInput{Phone: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateUser(ctx, uuid.New(), UpdateUserInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetAdminAndDelete(t *testing.T) {
	store := memory.NewStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	user := seedUser(t, store)

	promoted, err := svc.SetAdmin(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	demoted, err := svc.SetAdmin(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, demoted.IsAdmin())

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	svc := newTestUserService(memory.NewStore())
	ctx := context.Background()

	admin, created, err := svc.SeedAdmin(ctx, "root", "rootpassword")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, admin.IsAdmin())

	again, created, err := svc.SeedAdmin(ctx, "root", "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	_, _, err = svc.SeedAdmin(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
