package oauth

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// UserMapper derives local user field updates from provider profile
// attributes. Implementations are plain data-in/data-out transforms; the
// returned map is written onto the local user record as-is.
type UserMapper func(profile map[string]interface{}) (map[string]interface{}, error)

// Strategy describes one configured identity provider. The Name is stable:
// it appears in the login/callback routes and discriminates the provider's
// link entries on user records. A Strategy is immutable once handed to
// NewFlow.
type Strategy struct {
	// Name is the stable identifier used in routing and link entries.
	Name string

	// IssuerURL is the provider's issuer base URL used for discovery.
	IssuerURL string

	// ClientId is the relying party id
	ClientID string

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret

	// Scopes is the list of oidc scopes to request of the provider.
	Scopes []string

	// UserMapper optionally maps profile attributes onto local user fields.
	UserMapper UserMapper

	// AuthParams are extra authorization-request parameters merged into the
	// authorization URL. They never override the computed parameters
	// (code_challenge, redirect_uri, scope, state, ...).
	AuthParams map[string]string
}

// Validate the strategy configuration. It verifies the issuer parses as an
// http(s) URL but does not verify it is discoverable.
func (s *Strategy) Validate() error {
	const op = "oauth.Strategy.Validate"
	if s == nil {
		return fmt.Errorf("%s: strategy is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if s.Name == "" {
		result = multierror.Append(result, fmt.Errorf("strategy name is empty: %w", ErrInvalidParameter))
	}
	if s.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if s.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("client secret is empty: %w", ErrInvalidParameter))
	}
	switch u, err := url.Parse(s.IssuerURL); {
	case s.IssuerURL == "":
		result = multierror.Append(result, fmt.Errorf("issuer URL is empty: %w", ErrInvalidParameter))
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("issuer URL %s is invalid: %w", s.IssuerURL, err))
	case u.Scheme != "http" && u.Scheme != "https":
		result = multierror.Append(result, fmt.Errorf("issuer URL %s scheme is not http or https: %w", s.IssuerURL, ErrInvalidParameter))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// mapProfile applies the strategy's mapper, if any.
func (s *Strategy) mapProfile(profile map[string]interface{}) (map[string]interface{}, error) {
	if s.UserMapper == nil {
		return map[string]interface{}{}, nil
	}
	return s.UserMapper(profile)
}
