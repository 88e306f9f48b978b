package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"session_service/internal/lib/hasher"
	jwtlib "session_service/internal/lib/jwt"
	sl "session_service/internal/lib/logger"
	"session_service/internal/models"
	"session_service/internal/storage"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// stale/rotated refresh tokens alike, so callers cannot probe
	// which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

const (
	EventSignup  = "signup"
	EventSignin  = "signin"
	EventSignout = "signout"
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokens      *jwtlib.Issuer
	events      EventPublisher
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, name string, passHash []byte) (uid int64, err error)
	UpdateRefreshHash(ctx context.Context, userID int64, refreshHash []byte) error
	ClearRefreshHash(ctx context.Context, userID int64) error
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

// EventPublisher receives best-effort session audit events. A publish
// failure is logged and never fails the operation that produced it.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokens *jwtlib.Issuer,
	events EventPublisher,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokens:      tokens,
		events:      events,
	}
}

// Signup creates a user from the given credentials and opens a session
// for it. The user row commit is the only atomic step: a failure after
// it leaves the user signed out (refresh_hash NULL), which is safe.
func (a *Auth) Signup(ctx context.Context, name, email, password string) (models.TokenPair, error) {
	const op = "auth.Signup"

	log := a.log.With(slog.String("op", op))

	passHash, err := hasher.Hash(password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, name, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return models.TokenPair{}, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.openSession(ctx, id, email)
	if err != nil {
		log.Error("failed to open session", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	a.publish(ctx, EventSignup, id, email)

	log.Info("user signed up", slog.Int64("uid", id))

	return pair, nil
}

// Signin verifies the password and rotates the session.
func (a *Auth) Signin(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "auth.Signin"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !hasher.Verify(user.PassHash, password) {
		log.Info("invalid credentials")
		return models.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := a.openSession(ctx, user.ID, user.Email)
	if err != nil {
		log.Error("failed to open session", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	a.publish(ctx, EventSignin, user.ID, user.Email)

	log.Info("user signed in", slog.Int64("uid", user.ID))

	return pair, nil
}

// Refresh exchanges a still-valid refresh token for a new pair and
// rotates the stored hash, making the presented token single-use.
// Concurrent refreshes with the same token are not serialized; the
// last rotation wins and earlier pairs die at their next refresh.
func (a *Auth) Refresh(ctx context.Context, userID int64, presentedToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshHash == nil {
		log.Warn("no active session")
		return models.TokenPair{}, ErrInvalidCredentials
	}

	if !hasher.Verify(user.RefreshHash, presentedToken) {
		log.Warn("refresh token does not match stored hash")
		return models.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := a.openSession(ctx, user.ID, user.Email)
	if err != nil {
		log.Error("failed to rotate session", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed", slog.Int64("uid", user.ID))

	return pair, nil
}

// Signout clears the stored refresh hash, invalidating any outstanding
// refresh token immediately. Signing out twice is a no-op.
func (a *Auth) Signout(ctx context.Context, userID int64) error {
	const op = "auth.Signout"

	log := a.log.With(slog.String("op", op))

	if err := a.usrSaver.ClearRefreshHash(ctx, userID); err != nil {
		log.Error("failed to clear refresh hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.publish(ctx, EventSignout, userID, "")

	log.Info("user signed out", slog.Int64("uid", userID))

	return nil
}

// Profile resolves an authenticated user id to its public projection.
func (a *Auth) Profile(ctx context.Context, userID int64) (models.UserProfile, error) {
	const op = "auth.Profile"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.UserProfile{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.UserProfile{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Profile(), nil
}

// openSession issues a fresh token pair and persists the new refresh
// hash, overwriting whatever hash was stored before.
func (a *Auth) openSession(ctx context.Context, userID int64, email string) (models.TokenPair, error) {
	pair, err := a.tokens.IssuePair(userID, email)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshHash, err := hasher.Hash(pair.RefreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := a.usrSaver.UpdateRefreshHash(ctx, userID, refreshHash); err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

func (a *Auth) publish(ctx context.Context, kind string, userID int64, email string) {
	if a.events == nil {
		return
	}

	event := models.Event{
		Kind:   kind,
		UserID: userID,
		Email:  email,
		At:     time.Now(),
	}

	if err := a.events.Publish(ctx, event); err != nil {
		a.log.Error("failed to publish event", slog.String("event", kind), sl.Err(err))
	}
}
