package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/traitquest/traitquest/internal/apiclient"
	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/repository"
	"go.uber.org/zap"
)

// TokenKey is the single durable key holding the bearer token.
const TokenKey = "token"

// RouteHome is where the client lands after a forced logout.
const RouteHome = "/"

// UserFetcher loads the signed-in user from the backend.
type UserFetcher interface {
	Me(ctx context.Context) (*domain.User, error)
}

// Navigator moves the presentation layer to a route.
type Navigator interface {
	Navigate(route string)
}

// Store holds the auth session: the bearer token (persisted) and the user
// (memory only).
type Store struct {
	kv     repository.KeyValueRepo
	logger *zap.Logger

	mu    sync.RWMutex
	token string
	user  *domain.User
}

// NewStore loads any persisted token from kv.
func NewStore(ctx context.Context, kv repository.KeyValueRepo, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{kv: kv, logger: logger.Named("auth")}

	tok, err := kv.Get(ctx, TokenKey)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("loading token: %w", err)
	default:
		s.token = tok
	}
	return s, nil
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil before FetchUser/Login.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Login persists token and records user.
func (s *Store) Login(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return errors.New("login: empty token")
	}
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	s.logger.Info("logged in", zap.String("user_id", user.UserID))
	return nil
}

// Logout drops the token and user. In-memory state is cleared even when the
// durable key cannot be removed.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		s.logger.Error("removing persisted token", zap.Error(err))
		return fmt.Errorf("removing token: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// LogoutAndRedirect is the global 401 path: log out, then send the
// presentation layer home.
func (s *Store) LogoutAndRedirect(ctx context.Context, nav Navigator) {
	_ = s.Logout(ctx)
	if nav != nil {
		nav.Navigate(RouteHome)
	}
}

// FetchUser refreshes the user from the backend. It is a no-op without a
// token; a rejected token logs the session out.
func (s *Store) FetchUser(ctx context.Context, f UserFetcher) error {
	if !s.IsAuthenticated() {
		return nil
	}
	u, err := f.Me(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			_ = s.Logout(ctx)
		}
		return fmt.Errorf("fetching user: %w", err)
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return nil
}

// UpdateUser applies fn to the held user. Without a user it does nothing.
func (s *Store) UpdateUser(fn func(u *domain.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	u := *s.user
	fn(&u)
	s.user = &u
}

// ApplyLevelUp syncs a quest result's level change into the user.
func (s *Store) ApplyLevelUp(lu domain.LevelUp) {
	s.UpdateUser(func(u *domain.User) {
		u.Level = lu.Level
		u.Exp = lu.Exp
		if lu.ClassID != "" {
			u.HeroClassID = lu.ClassID
		}
	})
	s.logger.Info("level synced", zap.Int("level", lu.Level), zap.Int("exp", lu.Exp))
}
