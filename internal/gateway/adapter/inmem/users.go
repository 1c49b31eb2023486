package inmem

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"observe/internal/domain"
)

// UserStore keeps accounts in memory. All operations are serialized.
type UserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

// NewUserStore creates a store holding users.
func NewUserStore(users ...domain.User) *UserStore {
	s := &UserStore{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		s.users[u.Login] = u
	}
	return s
}

func (s *UserStore) GetUser(_ context.Context, login string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *UserStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	slices.SortFunc(out, func(a, b domain.User) int { return strings.Compare(a.Login, b.Login) })
	return out, nil
}

func (s *UserStore) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Login]; exists {
		return fmt.Errorf("%w: user %q already exists", domain.ErrBadRequest, u.Login)
	}
	u.ResetToken = nil
	s.users[u.Login] = u
	return nil
}

func (s *UserStore) UpdateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.Login]
	if !ok {
		return fmt.Errorf("user %q: %w", u.Login, domain.ErrNotFound)
	}
	u.ResetToken = old.ResetToken
	s.users[u.Login] = u
	return nil
}

func (s *UserStore) DeleteUser(_ context.Context, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[login]; !ok {
		return fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
	}
	delete(s.users, login)
	return nil
}

func (s *UserStore) SetPermissionAll(_ context.Context, permission string, except []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for login, u := range s.users {
		if slices.Contains(except, login) {
			continue
		}
		u.Permission = permission
		s.users[login] = u
		n++
	}
	return n, nil
}

func (s *UserStore) SetResetToken(_ context.Context, login string, token domain.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		return fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
	}
	u.ResetToken = &token
	s.users[login] = u
	return nil
}

func (s *UserStore) ConsumeResetToken(_ context.Context, login, token, digest, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		return fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
	}
	if u.ResetToken == nil || u.ResetToken.Value != token {
		return domain.ErrInvalidToken
	}
	u.PasswordDigest = digest
	u.Salt = salt
	u.ResetToken = nil
	s.users[login] = u
	return nil
}

func cloneUser(u domain.User) domain.User {
	if u.ResetToken != nil {
		t := *u.ResetToken
		u.ResetToken = &t
	}
	return u
}
