package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ApplicationPasswordLength is the number of characters in a generated
// application password.
const ApplicationPasswordLength = 24

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ApplicationPassword is a per-application credential of one user. Only
// the bcrypt hash of the password is kept.
type ApplicationPassword struct {
	UUID     string
	UserID   int64
	Login    string
	Name     string
	Roles    []string
	Hash     []byte
	Created  time.Time
	LastUsed time.Time
}

// ApplicationPasswordStore looks up application passwords.
type ApplicationPasswordStore interface {
	// ByLogin returns the passwords of the user with login.
	ByLogin(ctx context.Context, login string) ([]*ApplicationPassword, error)

	// Touch records a successful use.
	Touch(ctx context.Context, uuid string, at time.Time) error
}

// GeneratePassword returns a random application password.
func GeneratePassword() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for range ApplicationPasswordLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("auth: generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ChunkPassword formats a password in groups of four for display.
func ChunkPassword(pw string) string {
	var chunks []string
	for len(pw) > 4 {
		chunks = append(chunks, pw[:4])
		pw = pw[4:]
	}
	return strings.Join(append(chunks, pw), " ")
}

// MemoryApplicationPasswords is an in-memory ApplicationPasswordStore.
type MemoryApplicationPasswords struct {
	mu      sync.RWMutex
	byLogin map[string][]*ApplicationPassword
	cost    int
}

// NewMemoryApplicationPasswords returns an empty store hashing with
// bcrypt at cost (bcrypt.DefaultCost when cost is 0).
func NewMemoryApplicationPasswords(cost int) *MemoryApplicationPasswords {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &MemoryApplicationPasswords{byLogin: make(map[string][]*ApplicationPassword), cost: cost}
}

// Create generates a password named name for the user and returns the
// plain text once.
func (s *MemoryApplicationPasswords) Create(userID int64, login, name string, roles []string) (string, *ApplicationPassword, error) {
	plain, err := GeneratePassword()
	if err != nil {
		return "", nil, err
	}
	ap, err := s.Add(userID, login, name, plain, roles)
	if err != nil {
		return "", nil, err
	}
	return plain, ap, nil
}

// Add stores a known password. Spaces in plain are ignored.
func (s *MemoryApplicationPasswords) Add(userID int64, login, name, plain string, roles []string) (*ApplicationPassword, error) {
	if login == "" || userID <= 0 {
		return nil, errors.New("auth: application password needs a user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(stripSpaces(plain)), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	ap := &ApplicationPassword{
		UUID:    uuid.NewString(),
		UserID:  userID,
		Login:   login,
		Name:    name,
		Roles:   slices.Clone(roles),
		Hash:    hash,
		Created: time.Now().UTC(),
	}
	s.mu.Lock()
	s.byLogin[login] = append(s.byLogin[login], ap)
	s.mu.Unlock()
	return ap, nil
}

// AddHashed stores a password whose bcrypt hash is already known.
func (s *MemoryApplicationPasswords) AddHashed(ap *ApplicationPassword) error {
	if ap.Login == "" || len(ap.Hash) == 0 {
		return errors.New("auth: application password needs a login and hash")
	}
	if _, err := bcrypt.Cost(ap.Hash); err != nil {
		return fmt.Errorf("auth: invalid hash for %q: %w", ap.Login, err)
	}
	if ap.UUID == "" {
		ap.UUID = uuid.NewString()
	}
	s.mu.Lock()
	s.byLogin[ap.Login] = append(s.byLogin[ap.Login], ap)
	s.mu.Unlock()
	return nil
}

// Revoke removes the password with id.
func (s *MemoryApplicationPasswords) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for login, list := range s.byLogin {
		i := slices.IndexFunc(list, func(ap *ApplicationPassword) bool { return ap.UUID == id })
		if i >= 0 {
			s.byLogin[login] = slices.Delete(list, i, i+1)
			return true
		}
	}
	return false
}

// ByLogin implements ApplicationPasswordStore.
func (s *MemoryApplicationPasswords) ByLogin(_ context.Context, login string) ([]*ApplicationPassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byLogin[login]), nil
}

// Touch implements ApplicationPasswordStore.
func (s *MemoryApplicationPasswords) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.byLogin {
		for _, ap := range list {
			if ap.UUID == id {
				ap.LastUsed = at
				return nil
			}
		}
	}
	return nil
}

// ApplicationPasswordAuthenticator authenticates HTTP Basic credentials
// against application passwords.
type ApplicationPasswordAuthenticator struct {
	store ApplicationPasswordStore
}

// NewApplicationPasswordAuthenticator returns an authenticator over store.
func NewApplicationPasswordAuthenticator(store ApplicationPasswordStore) *ApplicationPasswordAuthenticator {
	return &ApplicationPasswordAuthenticator{store: store}
}

// Name returns "application_password".
func (a *ApplicationPasswordAuthenticator) Name() string { return "application_password" }

// Supports reports whether the request carries Basic credentials.
func (a *ApplicationPasswordAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	scheme, _, ok := strings.Cut(req.GetHeader("Authorization"), " ")
	return ok && strings.EqualFold(scheme, "Basic")
}

// Authenticate checks the Basic credentials.
func (a *ApplicationPasswordAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	r := httpRequestFor(req)
	login, password, ok := r.BasicAuth()
	if !ok || login == "" {
		return AuthFailure(ErrMissingCredentials, AuthMethodApplicationPassword), nil
	}
	password = stripSpaces(password)

	candidates, err := a.store.ByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("auth: application passwords for %q: %w", login, err)
	}
	for _, ap := range candidates {
		if bcrypt.CompareHashAndPassword(ap.Hash, []byte(password)) != nil {
			continue
		}
		now := time.Now().UTC()
		if err := a.store.Touch(ctx, ap.UUID, now); err != nil {
			return nil, err
		}
		return AuthSuccess(&Identity{
			UserID:   ap.UserID,
			Login:    ap.Login,
			Roles:    slices.Clone(ap.Roles),
			Method:   AuthMethodApplicationPassword,
			Claims:   map[string]any{"app_id": ap.UUID, "app_name": ap.Name},
			IssuedAt: now,
		}), nil
	}
	return AuthFailure(ErrInvalidCredentials, AuthMethodApplicationPassword), nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return -1
		}
		return r
	}, s)
}

var (
	_ Authenticator            = (*ApplicationPasswordAuthenticator)(nil)
	_ ApplicationPasswordStore = (*MemoryApplicationPasswords)(nil)
)
