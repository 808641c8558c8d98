package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults applied by NewGate for zero values.
const (
	DefaultSessionTTL     = 8 * time.Hour
	DefaultRevocationSize = 1024
	minSecretLength       = 32
)

// GateConfig configures the admin gate.
type GateConfig struct {
	Username string

	// Password is either a plain password or an Argon2id PHC hash.
	Password string

	// Secret signs session tokens. At least 32 bytes.
	Secret string

	SessionTTL     time.Duration
	RevocationSize int
}

// Session is a freshly issued admin session.
type Session struct {
	Token     string
	ID        string
	Username  string
	ExpiresAt time.Time
}

// Gate checks admin credentials and session tokens.
//
// Thread Safety: all methods are safe for concurrent use.
type Gate struct {
	username string
	password string
	hashed   bool
	secret   string
	ttl      time.Duration
	revoked  *expirable.LRU[string, struct{}]
	now      func() time.Time
}

// NewGate validates cfg and returns a ready Gate.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("auth: admin username and password must be configured")
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d bytes", minSecretLength)
	}

	hashed := IsPasswordHash(cfg.Password)
	if hashed {
		if _, _, _, err := decodePHC(cfg.Password); err != nil {
			return nil, err
		}
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	size := cfg.RevocationSize
	if size <= 0 {
		size = DefaultRevocationSize
	}

	return &Gate{
		username: cfg.Username,
		password: cfg.Password,
		hashed:   hashed,
		secret:   cfg.Secret,
		ttl:      ttl,
		// A revoked id only needs remembering until its token would expire.
		revoked: expirable.NewLRU[string, struct{}](size, nil, ttl),
		now:     time.Now,
	}, nil
}

// SessionTTL is how long issued sessions stay valid.
func (g *Gate) SessionTTL() time.Duration {
	return g.ttl
}

// Login checks username and password and issues a session on success.
//
// Returns ErrMissingCredentials if either is empty and ErrInvalidCredentials on
// mismatch. Both the username and the password are always compared so the
// response time does not reveal which one was wrong.
func (g *Gate) Login(username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	userOK := equalConstantTime(username, g.username)
	passOK, err := g.checkPassword(password)
	if err != nil {
		return nil, err
	}
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := issueToken(g.username, g.secret, g.ttl, g.now())
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ID:        claims.SessionID,
		Username:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate returns the claims of a live session token.
func (g *Gate) Validate(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}
	claims, err := parseToken(token, g.secret, g.now())
	if err != nil {
		return nil, err
	}
	if g.revoked.Contains(claims.SessionID) {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// Logout revokes the session carried by token. Logging out an already
// revoked session is not an error.
func (g *Gate) Logout(token string) error {
	claims, err := g.Validate(token)
	if errors.Is(err, ErrSessionRevoked) {
		return nil
	}
	if err != nil {
		return err
	}
	g.revoked.Add(claims.SessionID, struct{}{})
	return nil
}

func (g *Gate) checkPassword(candidate string) (bool, error) {
	if g.hashed {
		return VerifyPassword(candidate, g.password)
	}
	return equalConstantTime(candidate, g.password), nil
}

// equalConstantTime compares digests so differing lengths take the same time.
func equalConstantTime(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}
