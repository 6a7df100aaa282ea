// Package auth implements the credential gate for operator logins.
package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pcbaoi/aoi-go/internal/datastore"
	"github.com/pcbaoi/aoi-go/internal/errors"
	"github.com/pcbaoi/aoi-go/internal/logging"
	"github.com/pcbaoi/aoi-go/internal/observability/metrics"
)

// ErrAuthenticationFailed is the uniform rejection for every login failure:
// unknown username, inactive account, or password mismatch. Callers cannot
// tell which occurred, preventing username enumeration.
var ErrAuthenticationFailed = errors.NewStd("authentication failed")

// dummyHash is a throwaway bcrypt hash compared against when the username
// lookup fails, so the unknown-user path costs the same as a real mismatch.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserStore is the subset of the datastore the gate needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*datastore.User, error)
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// Gate validates login attempts against stored credentials.
type Gate struct {
	store   UserStore
	log     *slog.Logger
	metrics *metrics.DatastoreMetrics
}

// NewGate creates a credential gate over the given store.
func NewGate(store UserStore) *Gate {
	return &Gate{
		store: store,
		log:   logging.ForService("auth"),
	}
}

// SetMetrics attaches Prometheus metrics. Optional; recording is nil-safe.
func (g *Gate) SetMetrics(m *metrics.DatastoreMetrics) {
	g.metrics = m
}

// HashPassword produces a bcrypt hash for a new credential. Account
// management itself lives outside this core; the helper keeps the hash
// parameters in one place.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New(err).
			Component("auth").
			Category(errors.CategoryAuthentication).
			Build()
	}
	return string(hash), nil
}

// ValidateLogin checks the supplied credentials. On success it records the
// authentication timestamp and returns the user. Every rejection reason
// returns the same ErrAuthenticationFailed; storage failures surface
// separately so callers can retry.
func (g *Gate) ValidateLogin(ctx context.Context, username, password string) (*datastore.User, error) {
	user, err := g.store.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		// fall through to verification
	case errors.Is(err, datastore.ErrUserNotFound), errors.Is(err, datastore.ErrConstraintViolation):
		// Burn a comparison so an unknown username costs the same as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, g.reject(username)
	default:
		return nil, err
	}

	verifyErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if verifyErr != nil || !user.Active {
		return nil, g.reject(username)
	}

	now := time.Now()
	if err := g.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	g.log.Info("login accepted", "username", username, "role", user.Role)
	return user, nil
}

// reject logs and counts a failed attempt and returns the uniform error.
func (g *Gate) reject(username string) error {
	g.metrics.RecordLoginFailure()
	g.log.Warn("login rejected", "username", username)
	return errors.New(ErrAuthenticationFailed).
		Component("auth").
		Category(errors.CategoryAuthentication).
		Build()
}
