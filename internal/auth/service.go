package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contactkeeper/backend/internal/models"
	"github.com/contactkeeper/backend/internal/validate"
)

const profileKeyPrefix = "user:"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoToken            = errors.New("no token")
	ErrInvalidToken       = errors.New("invalid token")
)

// UserRepository is the credential store as seen by the auth service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ProfileCache is an optional read-through cache for user profiles.
type ProfileCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
}

type Service struct {
	users      UserRepository
	issuer     *Issuer
	bcryptCost int
	cache      ProfileCache
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewService(users UserRepository, issuer *Issuer, bcryptCost int) *Service {
	return &Service{
		users:      users,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// WithProfileCache enables caching of CurrentUser lookups.
func (s *Service) WithProfileCache(cache ProfileCache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// Register creates a user and returns a token for it. The email is checked
// up front and again by the store's unique constraint.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	email = validate.NormalizeEmail(email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return "", models.ErrEmailExists
	case !errors.Is(err, models.ErrUserNotFound):
		return "", fmt.Errorf("lookup email: %w", err)
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         validate.NormalizeText(name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrEmailExists) {
			return "", err
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.issuer.Issue(user.ID)
}

// Login returns a token when email and password match a stored user.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, validate.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup email: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.issuer.Issue(user.ID)
}

// CurrentUser loads the profile of an authenticated user.
func (s *Service) CurrentUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	key := profileKeyPrefix + id.String()
	if s.cache != nil {
		var cached models.User
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// Best effort; a failed write only costs a store read next time.
		_ = s.cache.Set(ctx, key, user, s.cacheTTL)
	}
	return user, nil
}

// Authenticate turns a raw token into an Identity.
func (s *Service) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}
	userID, err := s.issuer.Verify(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID}, nil
}
