package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
)

// Usernames are typed at the till: letters in any script, digits, and _ . -
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.\-]{2,64}$`)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUsernameInvalid    = errors.New("username must be 2-64 letters, digits, underscore, dot or hyphen")
	ErrLastAdmin          = errors.New("cannot remove the last admin")
)

// Service handles authentication and user management.
type Service struct {
	db     *database.Database
	users  *database.UserCollection
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *database.Database, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		users:  db.Users(),
		config: cfg,
	}
}

// Hasher returns the password hasher handed to the seeder.
func (s *Service) Hasher() database.PasswordHasher {
	return func(password string) (string, error) {
		return HashPassword(password, s.config.BcryptCost)
	}
}

func validRole(role entities.UserRole) bool {
	return role == entities.UserRoleAdmin || role == entities.UserRoleCashier
}

// CreateUser creates a new user with password authentication.
func (s *Service) CreateUser(ctx context.Context, username, password string, role entities.UserRole) (*entities.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	if !validRole(role) {
		return nil, ErrInvalidRole
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:  username,
		Password:  passwordHash,
		Role:      role,
		CreatedAt: s.db.Now(),
	}
	if _, err := s.users.Add(ctx, user); err != nil {
		if errors.Is(err, database.ErrUniquenessViolation) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUsername looks a user up through the unique username index.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	matches, err := s.users.GetByIndex(ctx, "username", username)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrUserNotFound
	}
	return &matches[0], nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	if id == 0 {
		return nil, ErrUserNotFound
	}
	user, found, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns every account in id order.
func (s *Service) ListUsers(ctx context.Context) ([]entities.User, error) {
	return s.users.GetAll(ctx)
}

// Authenticate validates credentials and returns the user. Unknown users and
// wrong passwords give the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.Password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword updates a user's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.Password); err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

// SetPassword replaces a user's password without the old one, for admins.
func (s *Service) SetPassword(ctx context.Context, userID uint, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *Service) setPassword(ctx context.Context, user *entities.User, newPassword string) error {
	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}
	user.Password = newHash
	_, err = s.users.Put(ctx, user)
	return err
}

// DeleteUser removes an account. The last admin cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, userID uint) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsAdmin() {
		all, err := s.users.GetAll(ctx)
		if err != nil {
			return err
		}
		admins := 0
		for _, u := range all {
			if u.IsAdmin() {
				admins++
			}
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	return s.users.Delete(ctx, userID)
}

// HasRole reports whether user holds one of roles.
func HasRole(user *entities.User, roles ...entities.UserRole) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
