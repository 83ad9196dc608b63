// Package auth implements user registration, login and API token
// verification. Tokens are bearer credentials of the form "fb_<hex>"; only
// their SHA-256 hash is stored.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finbook/internal/cache"
	"finbook/internal/core"
	"finbook/internal/log"
)

// Store is the persistence surface the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	CreateAPIToken(ctx context.Context, t core.APIToken) error
	GetAPITokenByHash(ctx context.Context, hash string) (core.APIToken, error)
	ListAPITokens(ctx context.Context, userID int64) ([]core.APIToken, error)
	DeleteAPIToken(ctx context.Context, userID int64, tokenID string) error
	UpdateAPITokenLastUsed(ctx context.Context, tokenID string, lastUsed time.Time) error
}

// Service verifies credentials and manages API tokens. Verified tokens are
// cached briefly so every request does not hit the database.
type Service struct {
	store      Store
	tokenCache *cache.LRUCache[core.APIToken]
	logger     *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	return &Service{
		store:      store,
		tokenCache: cache.NewLRUCache[core.APIToken](256, 2*time.Minute),
		logger:     logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates a user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return core.User{}, core.ErrInvalidEmail
	}
	if len(password) < 8 {
		return core.User{}, core.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, core.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	})
	if err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, user.ID)
	return user, nil
}

// Login checks email and password. Both unknown email and wrong password map
// to ErrUnauthenticated so the response does not reveal which one failed.
func (s *Service) Login(ctx context.Context, email, password string) (core.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrUnauthenticated
	}
	if err != nil {
		return core.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return core.User{}, core.ErrUnauthenticated
	}
	return user, nil
}

// CreateToken mints a new API token for the user and returns the metadata
// together with the raw token. The raw form is shown exactly once.
func (s *Service) CreateToken(ctx context.Context, userID int64, name string, ttl time.Duration) (core.APIToken, string, error) {
	raw, prefix, err := GenerateToken()
	if err != nil {
		return core.APIToken{}, "", err
	}
	token := core.APIToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		TokenHash:   HashToken(raw),
		TokenPrefix: prefix,
		CreatedAt:   time.Now().UTC(),
	}
	if ttl > 0 {
		expires := token.CreatedAt.Add(ttl)
		token.ExpiresAt = &expires
	}
	if err := s.store.CreateAPIToken(ctx, token); err != nil {
		return core.APIToken{}, "", err
	}
	s.logger.InfoContext(ctx, "api token created",
		log.FieldUserID, userID, log.FieldTokenID, token.ID)
	return token, raw, nil
}

func (s *Service) ListTokens(ctx context.Context, userID int64) ([]core.APIToken, error) {
	return s.store.ListAPITokens(ctx, userID)
}

// RevokeToken deletes a token and drops it from the verification cache.
func (s *Service) RevokeToken(ctx context.Context, userID int64, tokenID string) error {
	tokens, err := s.store.ListAPITokens(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAPIToken(ctx, userID, tokenID); err != nil {
		return err
	}
	for _, t := range tokens {
		if t.ID == tokenID {
			s.tokenCache.Delete(t.TokenHash)
		}
	}
	s.logger.InfoContext(ctx, "api token revoked",
		log.FieldUserID, userID, log.FieldTokenID, tokenID)
	return nil
}

// Authenticate resolves a raw bearer token to its user. Expired and unknown
// tokens fail with ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, raw string) (core.User, error) {
	if !ValidTokenFormat(raw) {
		return core.User{}, core.ErrUnauthenticated
	}
	hash := HashToken(raw)

	token, cached := s.tokenCache.Get(hash)
	if !cached {
		var err error
		token, err = s.store.GetAPITokenByHash(ctx, hash)
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrUnauthenticated
		}
		if err != nil {
			return core.User{}, err
		}
		s.tokenCache.Set(hash, token)
	}

	if token.Expired(time.Now()) {
		s.tokenCache.Delete(hash)
		return core.User{}, core.ErrUnauthenticated
	}

	user, err := s.store.GetUser(ctx, token.UserID)
	if err != nil {
		return core.User{}, err
	}

	// Last-used bookkeeping is best effort and never delays the request.
	go func(tokenID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.UpdateAPITokenLastUsed(ctx, tokenID, time.Now().UTC()); err != nil {
			s.logger.Warn("update token last used", log.FieldTokenID, tokenID, "error", err)
		}
	}(token.ID)

	return user, nil
}
