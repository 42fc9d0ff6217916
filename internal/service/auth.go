package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type AuthService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
}

type RegisterInput struct {
	Username string
	Password string
	Address  string
}

// Login checks the stored bcrypt hash. Unknown usernames and wrong passwords
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash.Mismatch(password)
			l.Warn("login_failed", "reason", "unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	publish(ctx, s.Publisher, mykafka.TopicUserEvents, user.ID, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

// Register always creates a regular user, whatever the caller asks for.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" || strings.TrimSpace(in.Address) == "" {
		return nil, fmt.Errorf("%w: username, password and address are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: pwHash,
		Address:      in.Address,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	publish(ctx, s.Publisher, mykafka.TopicUserEvents, user.ID, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})
	return user, nil
}

type AdminSeed struct {
	Username string
	Password string
	Address  string
}

// EnsureDefaultAdmin inserts the seed admin when no admin row exists yet. It
// reports whether a row was created.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	exists, err := s.Repo.AdminExists(ctx)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}

	pwHash, err := hash.HashPassword(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	admin := &models.User{
		Username:     seed.Username,
		PasswordHash: pwHash,
		Address:      seed.Address,
		Role:         models.RoleAdmin,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, admin); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			logging.FromContext(ctx).Warn("admin_seed_skipped", "reason", "username taken by a non-admin user", "username", seed.Username)
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
