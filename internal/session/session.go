// Package session gates irreversible ledger operations behind a locally
// verified passphrase.
//
// The passphrase is stored as a bcrypt digest under store.KeySessionDigest.
// A granted session lives for the lifetime of the Session value; nothing
// about it is persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/intake/internal/store"
)

// DefaultCost is the bcrypt cost used for new digests.
const DefaultCost = 12

var (
	// ErrDenied is returned when the passphrase does not match the digest.
	ErrDenied = errors.New("passphrase denied")

	// ErrNotProvisioned is returned by Authorize when no digest is stored and
	// bootstrap-on-first-use is off.
	ErrNotProvisioned = errors.New("no passphrase provisioned; run 'intake auth provision'")

	// ErrEmptyPassphrase is returned for blank input.
	ErrEmptyPassphrase = errors.New("passphrase is required")

	// ErrRotationDenied is returned by Provision when a digest already exists
	// and the session is not authorized.
	ErrRotationDenied = errors.New("changing the passphrase requires an authorized session")
)

// Storage is the durable key/value collaborator. *store.Store implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Option configures a Session.
type Option func(*Session)

// WithBootstrapOnFirstUse makes the first Authorize call with no stored
// digest store the supplied passphrase and grant the session.
func WithBootstrapOnFirstUse(enabled bool) Option {
	return func(s *Session) { s.bootstrap = enabled }
}

// WithCost sets the bcrypt cost for new digests.
func WithCost(cost int) Option {
	return func(s *Session) { s.cost = cost }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session holds the process-lifetime authorization flag.
type Session struct {
	store      Storage
	bootstrap  bool
	cost       int
	logger     *slog.Logger
	authorized bool
}

// New creates an unauthorized session backed by s.
func New(s Storage, opts ...Option) *Session {
	sess := &Session{
		store:  s,
		cost:   DefaultCost,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

// Authorized reports whether the session has been granted.
func (s *Session) Authorized() bool {
	return s.authorized
}

// Revoke clears the session flag unconditionally.
func (s *Session) Revoke() {
	s.authorized = false
}

// Provisioned reports whether a digest is stored.
func (s *Session) Provisioned(ctx context.Context) (bool, error) {
	_, ok, err := s.digest(ctx)
	return ok, err
}

// Authorize checks passphrase against the stored digest and grants the
// session on a match. A mismatch returns ErrDenied and leaves the current
// session state untouched.
func (s *Session) Authorize(ctx context.Context, passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return ErrEmptyPassphrase
	}

	digest, ok, err := s.digest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if !s.bootstrap {
			return ErrNotProvisioned
		}
		if err := s.write(ctx, passphrase); err != nil {
			return err
		}
		s.logger.Info("passphrase bootstrapped on first use")
		s.authorized = true
		return nil
	}

	if !Verify(passphrase, digest) {
		s.logger.Debug("passphrase denied")
		return ErrDenied
	}
	s.authorized = true
	return nil
}

// Provision stores the digest of passphrase and grants the session.
// Replacing an existing digest requires an authorized session.
func (s *Session) Provision(ctx context.Context, passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return ErrEmptyPassphrase
	}
	_, ok, err := s.digest(ctx)
	if err != nil {
		return err
	}
	if ok && !s.authorized {
		return ErrRotationDenied
	}
	if err := s.write(ctx, passphrase); err != nil {
		return err
	}
	s.authorized = true
	return nil
}

func (s *Session) digest(ctx context.Context) (string, bool, error) {
	digest, ok, err := s.store.Get(ctx, store.KeySessionDigest)
	if err != nil {
		return "", false, fmt.Errorf("read passphrase digest: %w", err)
	}
	return digest, ok && digest != "", nil
}

func (s *Session) write(ctx context.Context, passphrase string) error {
	digest, err := Hash(passphrase, s.cost)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, store.KeySessionDigest, digest); err != nil {
		return fmt.Errorf("store passphrase digest: %w", err)
	}
	return nil
}

// Hash creates a bcrypt digest of passphrase.
func Hash(passphrase string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hash), nil
}

// Verify checks if passphrase matches digest.
func Verify(passphrase, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(passphrase)) == nil
}
