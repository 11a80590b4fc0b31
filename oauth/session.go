package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quillcms/auth/cookie"
)

// StrategyName tags identities resolved from the session cookie so the host
// can distinguish OAuth-derived sessions from its other auth strategies.
const StrategyName = "oauth-session"

// sessionClaims is the signed payload of the session credential. The token
// is bearer-equivalent to a password while valid.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Identity is an authenticated user resolved from a session cookie.
type Identity struct {
	User       *User
	Collection string
	Strategy   string
}

// mintSession signs a session credential asserting the user id, expiring
// after the configured lifetime.
func (f *Flow) mintSession(userID string) (string, error) {
	const op = "oauth.Flow.mintSession"
	now := f.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(f.cfg.SessionTTL)),
		},
		UserID: userID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(f.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign session token: %w", op, err)
	}
	return signed, nil
}

// verifySession validates signature and expiry and returns the asserted
// user id.
func (f *Flow) verifySession(raw string) (string, error) {
	const op = "oauth.Flow.verifySession"
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return []byte(f.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(f.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%s: session token rejected: %w", op, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%s: session token has no user id: %w", op, ErrInvalidParameter)
	}
	return claims.UserID, nil
}

// Authenticate resolves a request's identity from its Cookie header. It
// never fails: a missing cookie, an invalid or expired credential, or a
// vanished user all resolve to anonymous (nil).
func (f *Flow) Authenticate(ctx context.Context, cookieHeader string) *Identity {
	const op = "oauth.Flow.Authenticate"
	token, ok := cookie.Parse(cookieHeader)[f.cfg.CookieName]
	if !ok {
		return nil
	}
	userID, err := f.verifySession(token)
	if err != nil {
		f.logger.Error("session verification failed", "op", op, "err", err)
		return nil
	}
	user, err := f.store.FindByID(ctx, f.cfg.UserCollection, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			f.logger.Warn("session user not found", "op", op, "user_id", userID)
		} else {
			f.logger.Error("session user lookup failed", "op", op, "user_id", userID, "err", err)
		}
		return nil
	}
	return &Identity{User: user, Collection: f.cfg.UserCollection, Strategy: StrategyName}
}
