package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/log"
)

func TestGenerateToken(t *testing.T) {
	raw, prefix, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if !ValidTokenFormat(raw) {
		t.Errorf("generated token %q fails format check", raw)
	}
	if prefix != raw[:len(prefix)] {
		t.Errorf("prefix %q is not a prefix of %q", prefix, raw)
	}

	other, _, _ := GenerateToken()
	if raw == other {
		t.Error("two generated tokens are identical")
	}
}

func TestValidTokenFormat(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"", false},
		{"fb_", false},
		{"garbage", false},
		{"fb_" + strings.Repeat("z", 64), false},
		{"fb_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
	}
	for _, c := range cases {
		if got := ValidTokenFormat(c.token); got != c.want {
			t.Errorf("ValidTokenFormat(%q) = %v, want %v", c.token, got, c.want)
		}
	}
}

type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]core.User
	byEmail  map[string]core.User
	tokens   map[string]core.APIToken // keyed by hash
	lastUsed map[string]time.Time
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]core.User{},
		byEmail:  map[string]core.User{},
		tokens:   map[string]core.APIToken{},
		lastUsed: map[string]time.Time{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u core.User) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateAPIToken(_ context.Context, t core.APIToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[t.TokenHash] = t
	return nil
}

func (f *fakeStore) GetAPITokenByHash(_ context.Context, hash string) (core.APIToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[hash]
	if !ok {
		return core.APIToken{}, core.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListAPITokens(_ context.Context, userID int64) ([]core.APIToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.APIToken
	for _, t := range f.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteAPIToken(_ context.Context, userID int64, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, t := range f.tokens {
		if t.UserID == userID && t.ID == tokenID {
			delete(f.tokens, hash)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) UpdateAPITokenLastUsed(_ context.Context, tokenID string, lastUsed time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed[tokenID] = lastUsed
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(newFakeStore(), testLogger())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "correct horse", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "correct horse"); err != nil {
		t.Errorf("login with right password: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("wrong password: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("unknown email: err = %v, want ErrUnauthenticated", err)
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := NewService(newFakeStore(), testLogger())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "long enough pw", ""); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := svc.Register(ctx, "a@b.com", "short", ""); err == nil {
		t.Error("expected error for short password")
	}
}

func TestAuthenticate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "long enough pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, raw, err := svc.CreateToken(ctx, user.ID, "cli", 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := svc.Authenticate(ctx, raw)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user %d, want %d", got.ID, user.ID)
	}

	// Second call is served from the cache.
	if _, err := svc.Authenticate(ctx, raw); err != nil {
		t.Errorf("cached authenticate: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "fb_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("unknown token: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.Authenticate(ctx, "not a token"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("malformed token: err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	user, _ := svc.Register(ctx, "a@b.com", "long enough pw", "")
	token, raw, err := svc.CreateToken(ctx, user.ID, "short lived", time.Nanosecond)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if token.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	time.Sleep(time.Millisecond)

	if _, err := svc.Authenticate(ctx, raw); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("expired token: err = %v, want ErrUnauthenticated", err)
	}
}

func TestRevokeToken(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	user, _ := svc.Register(ctx, "a@b.com", "long enough pw", "")
	token, raw, _ := svc.CreateToken(ctx, user.ID, "cli", 0)

	if _, err := svc.Authenticate(ctx, raw); err != nil {
		t.Fatalf("authenticate before revoke: %v", err)
	}
	if err := svc.RevokeToken(ctx, user.ID, token.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Authenticate(ctx, raw); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("after revoke: err = %v, want ErrUnauthenticated", err)
	}
}
