package oauth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderMetadata is the slice of discovered issuer configuration the flow
// needs. UserinfoURL is empty when the provider publishes no userinfo
// endpoint.
type ProviderMetadata struct {
	Issuer      string
	AuthURL     string
	TokenURL    string
	UserinfoURL string
}

// Tokens is the result of redeeming an authorization code.
type Tokens struct {
	AccessToken string
	IDToken     string
	Expiry      time.Time
}

// ProviderClient is the identity-provider collaborator: issuer discovery,
// authorization-code exchange, and profile fetch. Implementations must
// validate the authorization response state and PKCE verifier during
// Exchange and reject mismatches.
type ProviderClient interface {
	Discover(ctx context.Context, strategy *Strategy) (*ProviderMetadata, error)
	Exchange(ctx context.Context, md *ProviderMetadata, strategy *Strategy, reqURL *url.URL, expectedState, verifier string) (*Tokens, error)
	FetchProfile(ctx context.Context, accessToken, profileURL string) (map[string]interface{}, error)
}

// maxProfileBytes caps the userinfo response read.
const maxProfileBytes = 1 << 20

// OIDCClient is the production ProviderClient built on go-oidc discovery and
// oauth2 code exchange.
type OIDCClient struct {
	client      *http.Client
	redirectURI func(strategyName string) string
}

var _ ProviderClient = (*OIDCClient)(nil)

// NewOIDCClient creates a ProviderClient for real providers. redirectURI
// computes the callback URL registered for a strategy.
// Supported options:
//
//	WithProviderCA
func NewOIDCClient(redirectURI func(strategyName string) string, opt ...Option) (*OIDCClient, error) {
	const op = "oauth.NewOIDCClient"
	if redirectURI == nil {
		return nil, fmt.Errorf("%s: redirect URI func is nil: %w", op, ErrNilParameter)
	}
	opts := getOIDCClientOpts(opt...)
	client, err := newHTTPClient(opts.withProviderCA)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	return &OIDCClient{client: client, redirectURI: redirectURI}, nil
}

// Discover fetches the issuer's published metadata. It makes an http request
// to the issuer's well-known configuration document.
func (c *OIDCClient) Discover(ctx context.Context, strategy *Strategy) (*ProviderMetadata, error) {
	const op = "oauth.OIDCClient.Discover"
	if strategy == nil {
		return nil, fmt.Errorf("%s: strategy is nil: %w", op, ErrNilParameter)
	}
	ctx = oidc.ClientContext(ctx, c.client)
	provider, err := oidc.NewProvider(ctx, strategy.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover issuer %s: %w", op, strategy.IssuerURL, err)
	}
	var extra struct {
		UserinfoEndpoint string `json:"userinfo_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, fmt.Errorf("%s: unable to decode issuer metadata: %w", op, err)
	}
	ep := provider.Endpoint()
	return &ProviderMetadata{
		Issuer:      strategy.IssuerURL,
		AuthURL:     ep.AuthURL,
		TokenURL:    ep.TokenURL,
		UserinfoURL: extra.UserinfoEndpoint,
	}, nil
}

// Exchange validates the authorization response carried in reqURL against
// the expected state, then redeems the code at the token endpoint with the
// PKCE verifier.
func (c *OIDCClient) Exchange(ctx context.Context, md *ProviderMetadata, strategy *Strategy, reqURL *url.URL, expectedState, verifier string) (*Tokens, error) {
	const op = "oauth.OIDCClient.Exchange"
	if md == nil || strategy == nil || reqURL == nil {
		return nil, fmt.Errorf("%s: missing exchange input: %w", op, ErrNilParameter)
	}
	q := reqURL.Query()
	if errCode := q.Get("error"); errCode != "" {
		return nil, fmt.Errorf("%s: provider returned %q (%s): %w", op, errCode, q.Get("error_description"), ErrExchangeFailed)
	}
	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%s: authorization code is missing: %w", op, ErrExchangeFailed)
	}
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(expectedState)) != 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrStateMismatch)
	}

	conf := oauth2.Config{
		ClientID:     strategy.ClientID,
		ClientSecret: string(strategy.ClientSecret),
		RedirectURL:  c.redirectURI(strategy.Name),
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthURL,
			TokenURL: md.TokenURL,
		},
		Scopes: strategy.Scopes,
	}
	ctx = oidc.ClientContext(ctx, c.client)
	tok, err := conf.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, err)
	}
	tokens := &Tokens{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
	if raw, ok := tok.Extra("id_token").(string); ok {
		tokens.IDToken = raw
	}
	return tokens, nil
}

// FetchProfile gets the profile attributes from the provider's userinfo
// endpoint using the access token.
func (c *OIDCClient) FetchProfile(ctx context.Context, accessToken, profileURL string) (map[string]interface{}, error) {
	const op = "oauth.OIDCClient.FetchProfile"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to build userinfo request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: userinfo request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: userinfo endpoint returned %d: %w", op, resp.StatusCode, ErrExchangeFailed)
	}
	var profile map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%s: unable to decode userinfo response: %w", op, err)
	}
	return profile, nil
}

// oidcClientOptions is the set of available options
type oidcClientOptions struct {
	withProviderCA string
}

func oidcClientDefaults() oidcClientOptions {
	return oidcClientOptions{}
}

func getOIDCClientOpts(opt ...Option) oidcClientOptions {
	opts := oidcClientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
