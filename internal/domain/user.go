// Package domain defines the business logic for the training service.
package domain

import (
	"context"
	"time"
)

// User is the local profile row kept in sync with the identity provider.
// Identity (credentials, sessions) lives outside this service; a row here
// exists for every principal that has touched the API at least once.
type User struct {
	ID                  string
	Username            string
	LastSeen            time.Time
	LastMessageReadTime time.Time
	LastNotificationTS  int64
	CreatedAt           time.Time
}

// Page is a page-number pagination request.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps raw request values into a usable page.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// UserRepository captures persistence operations for profiles.
type UserRepository interface {
	UpsertSeen(ctx context.Context, id, username string, seenAt time.Time) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// UserService keeps the local profile table aligned with authenticated traffic.
type UserService struct {
	repo UserRepository
}

// NewUserService constructs a UserService.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// EnsureSeen upserts the caller's profile row and bumps its last-seen stamp.
// It must run before any operation that writes rows referencing the user.
func (s *UserService) EnsureSeen(ctx context.Context, id, username string) error {
	if id == "" || username == "" {
		return Invalidf("user id and username are required")
	}
	return s.repo.UpsertSeen(ctx, id, username, time.Now().UTC())
}

// GetByUsername resolves a profile by its unique username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}
