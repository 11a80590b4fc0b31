package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/quillcms/auth/cookie"
)

const (
	// DefaultUserCollection is the collection holding local user records.
	DefaultUserCollection = "users"

	// DefaultCookieName is the name of the session cookie.
	DefaultCookieName = "oauth-token"

	// DefaultSessionTTL bounds the session credential's validity.
	DefaultSessionTTL = 7 * 24 * time.Hour

	// DefaultLogoutRedirect is used when no logout redirect is configured.
	DefaultLogoutRedirect = "/"

	// transientCookieMaxAge bounds the verifier/state cookies; one login
	// attempt must complete within this window.
	transientCookieMaxAge = 600
)

// AfterLoginFunc is an optional side effect invoked after a successful
// callback. It is best-effort: a failure is logged and never blocks the
// redirect.
type AfterLoginFunc func(ctx context.Context, user *User, result *LoginResult) error

// LoginResult is the exchange context handed to AfterLogin.
type LoginResult struct {
	// Strategy is the name of the strategy that completed the login.
	Strategy string

	// Subject is the provider-issued stable identifier for the user.
	Subject string

	// Email is the resolved (possibly synthetic) email of the user.
	Email string

	// Created is true when this login created the user record.
	Created bool

	// Profile holds the raw provider profile attributes.
	Profile map[string]interface{}
}

// Config is the global plugin policy. It is loaded once at composition time
// and immutable thereafter; NewFlow validates it and fills defaults on a
// private copy.
type Config struct {
	// Strategies are the configured identity providers. At least one is
	// required and names must be unique.
	Strategies []*Strategy

	// ServerURL is the host server base URL. It is used to build the
	// redirect URI and, when CookieSecure is nil, to infer the Secure
	// cookie attribute from its scheme.
	ServerURL string

	// Secret is the host's shared secret used to sign session credentials.
	Secret string

	// SuccessRedirect receives the browser after a successful callback.
	SuccessRedirect string

	// FailureRedirect receives the browser after a failed callback,
	// annotated with an error query parameter.
	FailureRedirect string

	// LogoutRedirect receives the browser after logout. Default "/".
	LogoutRedirect string

	// UserCollection is the target user-collection identifier. Default
	// "users".
	UserCollection string

	// Disabled turns the whole plugin into a no-op at composition time.
	Disabled bool

	// DisableRegistration rejects logins that would create a new user.
	DisableRegistration bool

	// DisableEmailLinking prevents matching existing users by email; only
	// explicit (strategy, sub) links are considered.
	DisableEmailLinking bool

	// RequireVerifiedEmail only links by email when the profile explicitly
	// marks the email verified. Without it, an email is eligible unless
	// explicitly marked unverified.
	RequireVerifiedEmail bool

	// CookieName overrides the session cookie name. Default "oauth-token".
	CookieName string

	// CookieSameSite overrides the SameSite attribute. Default Lax.
	CookieSameSite cookie.SameSite

	// CookieSecure overrides the Secure attribute. When nil it is inferred
	// from the ServerURL scheme.
	CookieSecure *bool

	// SessionTTL is the session credential lifetime. Default 7 days.
	SessionTTL time.Duration

	// AfterLogin is an optional post-login side effect.
	AfterLogin AfterLoginFunc
}

// Validate the plugin configuration, accumulating every violation.
func (c *Config) Validate() error {
	const op = "oauth.Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	switch _, err := url.Parse(c.ServerURL); {
	case c.ServerURL == "":
		result = multierror.Append(result, fmt.Errorf("server URL is empty: %w", ErrInvalidParameter))
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("server URL %s is invalid: %w", c.ServerURL, err))
	}
	if c.Secret == "" {
		result = multierror.Append(result, fmt.Errorf("secret is empty: %w", ErrInvalidParameter))
	}
	if c.SuccessRedirect == "" {
		result = multierror.Append(result, fmt.Errorf("success redirect is empty: %w", ErrInvalidParameter))
	}
	if c.FailureRedirect == "" {
		result = multierror.Append(result, fmt.Errorf("failure redirect is empty: %w", ErrInvalidParameter))
	}
	if len(c.Strategies) == 0 {
		result = multierror.Append(result, fmt.Errorf("no strategies configured: %w", ErrInvalidParameter))
	}
	seen := map[string]bool{}
	for i, s := range c.Strategies {
		if err := s.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("strategy %d: %w", i, err))
			continue
		}
		if seen[s.Name] {
			result = multierror.Append(result, fmt.Errorf("duplicate strategy name %q: %w", s.Name, ErrInvalidParameter))
		}
		seen[s.Name] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// withDefaults returns a normalized copy with defaults applied.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.UserCollection == "" {
		out.UserCollection = DefaultUserCollection
	}
	if out.CookieName == "" {
		out.CookieName = DefaultCookieName
	}
	if out.CookieSameSite == "" {
		out.CookieSameSite = cookie.SameSiteLax
	}
	if out.SessionTTL <= 0 {
		out.SessionTTL = DefaultSessionTTL
	}
	if out.LogoutRedirect == "" {
		out.LogoutRedirect = DefaultLogoutRedirect
	}
	return &out
}

// secureCookies resolves the Secure attribute: explicit override, otherwise
// inferred from the server URL scheme.
func (c *Config) secureCookies() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return cookie.IsSecure(c.ServerURL)
}

// cookieOptions are the attributes shared by every cookie this flow emits.
func (c *Config) cookieOptions(maxAge int) cookie.Options {
	return cookie.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		SameSite: c.CookieSameSite,
		Secure:   c.secureCookies(),
	}
}

// redirectURI is the callback URL registered with the provider.
func (c *Config) redirectURI(strategyName string) string {
	return strings.TrimRight(c.ServerURL, "/") + "/api/oauth/" + strategyName + "/callback"
}
