package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"goldshop/internal/config"
	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^(\+98|0)?9\d{9}$`)

// UserService defines the interface for account and authentication logic
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, *TokenPair, error)
	Login(ctx context.Context, username, password string) (*domain.User, *TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ValidateToken(tokenString string) (*Claims, error)

	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	SetAdmin(ctx context.Context, userID uuid.UUID, admin bool) (*domain.User, error)

	// SeedAdmin creates the super user unless the username is taken. It
	// reports whether a user was created.
	SeedAdmin(ctx context.Context, username, password string) (*domain.User, bool, error)
}

type RegisterInput struct {
	Username string
	Password string
	Name     string
	Family   string
	Phone    string
}

// UpdateUserInput carries optional profile changes; nil fields are left as is
type UpdateUserInput struct {
	Password *string
	Name     *string
	Family   *string
	Phone    *string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token was issued to an admin
func (c *Claims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

type userService struct {
	store      repository.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(store repository.Store, jwtCfg config.JWTConfig, authCfg config.AuthConfig, logger *zap.Logger) UserService {
	cost := authCfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	return &userService{
		store:      store,
		jwtSecret:  []byte(jwtCfg.Secret),
		accessTTL:  jwtCfg.AccessTTL(),
		refreshTTL: jwtCfg.RefreshTTL(),
		bcryptCost: cost,
		logger:     logger.Named("users"),
	}
}

// Register creates a new user account and signs it in
func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, *TokenPair, error) {
	if err := validatePhone(input.Phone); err != nil {
		return nil, nil, err
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		PasswordHash: hashedPassword,
		Name:         input.Name,
		Family:       input.Family,
		Phone:        input.Phone,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var tokens *TokenPair
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		tokens, err = s.issueTokens(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, nil, storeErr("register user", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, tokens, nil
}

// Login authenticates a user and returns a fresh token pair
func (s *userService) Login(ctx context.Context, username, password string) (*domain.User, *TokenPair, error) {
	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, storeErr("find user", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, s.store, user)
	if err != nil {
		return nil, nil, storeErr("issue tokens", err)
	}

	return user, tokens, nil
}

// Logout revokes the refresh token. Unknown tokens count as already logged out.
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.RefreshTokens().Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return nil
		}
		return storeErr("revoke refresh token", err)
	}
	return nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new pair issued
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var tokens *TokenPair

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		stored, err := tx.RefreshTokens().FindByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
				return ErrInvalidToken
			}
			return err
		}

		if time.Now().After(stored.ExpiresAt) {
			return ErrTokenExpired
		}

		// Losing a concurrent rotation of the same token shows up here.
		if err := tx.RefreshTokens().Revoke(ctx, refreshToken); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenRevoked) {
				return ErrInvalidToken
			}
			return err
		}

		user, err := tx.Users().FindByID(ctx, stored.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		tokens, err = s.issueTokens(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, storeErr("refresh token", err)
	}

	return tokens, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// UpdateUser changes profile fields. Username and role are not editable here.
func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	if input.Phone != nil {
		if err := validatePhone(*input.Phone); err != nil {
			return nil, err
		}
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			user.Name = *input.Name
		}
		if input.Family != nil {
			user.Family = *input.Family
		}
		if input.Phone != nil {
			user.Phone = *input.Phone
		}
		if input.Password != nil {
			hashed, err := s.hashPassword(*input.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user.PasswordHash = hashed
		}

		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, storeErr("update user", err)
	}

	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Users().Delete(ctx, userID); err != nil {
		return storeErr("delete user", err)
	}
	s.logger.Info("User deleted", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) SetAdmin(ctx context.Context, userID uuid.UUID, admin bool) (*domain.User, error) {
	role := domain.RoleUser
	if admin {
		role = domain.RoleAdmin
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().SetRole(ctx, userID, role); err != nil {
			return err
		}
		var err error
		user, err = tx.Users().FindByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, storeErr("set admin", err)
	}

	s.logger.Info("User role changed", zap.String("user_id", userID.String()), zap.String("role", role))
	return user, nil
}

func (s *userService) SeedAdmin(ctx context.Context, username, password string) (*domain.User, bool, error) {
	if username == "" || password == "" {
		return nil, false, domain.NewValidationError("superuser", "username and password are required")
	}

	existing, err := s.store.Users().FindByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, storeErr("find user", err)
	}

	hashed, err := s.hashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashed,
		Name:         "Super",
		Family:       "User",
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		// Lost a race with another seeder.
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			existing, findErr := s.store.Users().FindByUsername(ctx, username)
			if findErr != nil {
				return nil, false, storeErr("find user", findErr)
			}
			return existing, false, nil
		}
		return nil, false, storeErr("create superuser", err)
	}

	s.logger.Info("Superuser created", zap.String("username", username))
	return user, true, nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (s *userService) issueTokens(ctx context.Context, store repository.Store, user *domain.User) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, store, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// generateAccessToken generates a JWT access token with user ID and role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *userService) generateRefreshToken(ctx context.Context, store repository.Store, user *domain.User) (string, error) {
	now := time.Now()
	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}

	if err := store.RefreshTokens().Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return refreshToken.Token, nil
}

func validatePhone(phone string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return domain.NewValidationError("phone", "must be a valid mobile number")
	}
	return nil
}
