package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.do(ctx, "Users.Create", func(st *state) error {
		for _, u := range st.users {
			if u.Username == user.Username {
				return repository.ErrUserAlreadyExists
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var found *domain.User
	err := r.s.do(ctx, "Users.FindByUsername", func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return found, err
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var found *domain.User
	err := r.s.do(ctx, "Users.FindByID", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		found = &u
		return nil
	})
	return found, err
}

func (r userRepo) List(ctx context.Context) ([]*domain.User, error) {
	users := []*domain.User{}
	err := r.s.do(ctx, "Users.List", func(st *state) error {
		for _, u := range st.users {
			u := u
			users = append(users, &u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, err
}

func (r userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.s.do(ctx, "Users.Update", func(st *state) error {
		u, ok := st.users[user.ID]
		if !ok {
			return repository.ErrUserNotFound
		}
		u.PasswordHash = user.PasswordHash
		u.Name = user.Name
		u.Family = user.Family
		u.Phone = user.Phone
		u.UpdatedAt = time.Now()
		user.UpdatedAt = u.UpdatedAt
		st.users[u.ID] = u
		return nil
	})
}

func (r userRepo) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.s.do(ctx, "Users.SetRole", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		u.Role = role
		u.UpdatedAt = time.Now()
		st.users[id] = u
		return nil
	})
}

func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, "Users.Delete", func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrUserNotFound
		}
		for _, o := range st.orders {
			if o.UserID == id {
				return fmt.Errorf("user has orders: %w", domain.ErrConflict)
			}
		}
		for token, rt := range st.tokens {
			if rt.UserID == id {
				delete(st.tokens, token)
			}
		}
		for cartID, c := range st.carts {
			if c.UserID == id {
				deleteCart(st, cartID)
			}
		}
		delete(st.users, id)
		return nil
	})
}

type tokenRepo struct{ s *Store }

func (r tokenRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.s.do(ctx, "RefreshTokens.Create", func(st *state) error {
		st.tokens[token.Token] = *token
		return nil
	})
}

func (r tokenRepo) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var found *domain.RefreshToken
	err := r.s.do(ctx, "RefreshTokens.FindByToken", func(st *state) error {
		rt, ok := st.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if rt.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		found = &rt
		return nil
	})
	return found, err
}

func (r tokenRepo) Revoke(ctx context.Context, token string) error {
	return r.s.do(ctx, "RefreshTokens.Revoke", func(st *state) error {
		rt, ok := st.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if rt.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		rt.Revoked = true
		st.tokens[token] = rt
		return nil
	})
}

func (r tokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.s.do(ctx, "RefreshTokens.RevokeAllForUser", func(st *state) error {
		for token, rt := range st.tokens {
			if rt.UserID == userID {
				rt.Revoked = true
				st.tokens[token] = rt
			}
		}
		return nil
	})
}
