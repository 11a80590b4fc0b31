package oauth

import (
	"context"
	"fmt"

	"github.com/quillcms/auth/cookie"
	"golang.org/x/oauth2"
)

// Transient cookie names carrying the PKCE verifier and anti-forgery state
// between the login redirect and the provider callback. They are the only
// server-side-free state of a login attempt.
const (
	verifierCookie = "oauth_verifier"
	stateCookie    = "oauth_state"
)

// Login builds the authorization redirect for the named strategy: it
// resolves provider metadata, generates the PKCE pair and anti-forgery
// state, and returns a 302 to the provider's authorization endpoint with
// the verifier and state set as short-lived cookies.
//
// A discovery failure is returned as an error, not a failure redirect; the
// caller treats it as an internal error.
func (f *Flow) Login(ctx context.Context, strategyName string) (*Response, error) {
	const op = "oauth.Flow.Login"
	strategy, ok := f.strategies[strategyName]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, strategyName, ErrUnknownStrategy)
	}
	md, err := f.cache.Resolve(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	verifier, challenge, err := newPKCE()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := f.cfg.cookieOptions(transientCookieMaxAge)
	return newRedirect(f.authorizationURL(md, strategy, challenge, state),
		cookie.Serialize(verifierCookie, verifier, opts),
		cookie.Serialize(stateCookie, state, opts),
	), nil
}

// computedParams are the authorization-request parameters owned by the flow;
// strategy-supplied extras never override them.
var computedParams = map[string]bool{
	"client_id":             true,
	"response_type":         true,
	"redirect_uri":          true,
	"scope":                 true,
	"state":                 true,
	"code_challenge":        true,
	"code_challenge_method": true,
}

func (f *Flow) authorizationURL(md *ProviderMetadata, strategy *Strategy, challenge, state string) string {
	conf := oauth2.Config{
		ClientID:     strategy.ClientID,
		ClientSecret: string(strategy.ClientSecret),
		RedirectURL:  f.cfg.redirectURI(strategy.Name),
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthURL,
			TokenURL: md.TokenURL,
		},
		Scopes: strategy.Scopes,
	}
	params := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	for k, v := range strategy.AuthParams {
		if computedParams[k] {
			continue
		}
		params = append(params, oauth2.SetAuthURLParam(k, v))
	}
	return conf.AuthCodeURL(state, params...)
}
