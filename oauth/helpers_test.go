package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClient is a ProviderClient test double. Like the production client it
// rejects a state mismatch during Exchange.
type fakeClient struct {
	mu            sync.Mutex
	metadata      *ProviderMetadata
	profile       map[string]interface{}
	discoverErr   error
	exchangeErr   error
	profileErr    error
	discoverCalls int
	exchangeCalls int
	profileCalls  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		metadata: &ProviderMetadata{
			Issuer:      "https://issuer.example.com",
			AuthURL:     "https://issuer.example.com/authorize",
			TokenURL:    "https://issuer.example.com/token",
			UserinfoURL: "https://issuer.example.com/userinfo",
		},
		profile: map[string]interface{}{"sub": "abc123"},
	}
}

func (c *fakeClient) Discover(_ context.Context, _ *Strategy) (*ProviderMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discoverCalls++
	if c.discoverErr != nil {
		return nil, c.discoverErr
	}
	md := *c.metadata
	return &md, nil
}

func (c *fakeClient) Exchange(_ context.Context, _ *ProviderMetadata, _ *Strategy, reqURL *url.URL, expectedState, verifier string) (*Tokens, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchangeCalls++
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	if verifier == "" {
		return nil, fmt.Errorf("missing verifier: %w", ErrExchangeFailed)
	}
	if reqURL.Query().Get("state") != expectedState {
		return nil, ErrStateMismatch
	}
	return &Tokens{AccessToken: "at-test", Expiry: time.Now().Add(time.Hour)}, nil
}

func (c *fakeClient) FetchProfile(_ context.Context, _, _ string) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileCalls++
	if c.profileErr != nil {
		return nil, c.profileErr
	}
	return c.profile, nil
}

// fakeStore is an in-memory UserStore double that records its inputs.
type fakeStore struct {
	mu         sync.Mutex
	seq        int
	users      map[string]*User
	created    []NewUser
	lastFilter *UserFilter
	findOneErr error
	createErr  error
	updateErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*User{}}
}

func (s *fakeStore) FindOne(_ context.Context, _ string, filter UserFilter) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := filter
	s.lastFilter = &f
	if s.findOneErr != nil {
		return nil, s.findOneErr
	}
	for _, u := range s.users {
		for _, l := range u.Links {
			if l.Strategy == filter.LinkStrategy && l.Sub == filter.LinkSub {
				return copyUser(u), nil
			}
		}
		if filter.Email != "" && u.Email == filter.Email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) Create(_ context.Context, _ string, user NewUser) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, user)
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	u := &User{
		ID:     "u" + strconv.Itoa(s.seq),
		Email:  user.Email,
		Fields: user.Fields,
		Links:  append([]Link(nil), user.Links...),
	}
	s.users[u.ID] = u
	return copyUser(u), nil
}

func (s *fakeStore) Update(_ context.Context, _ string, id string, update UserUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Fields == nil {
		u.Fields = map[string]interface{}{}
	}
	for k, v := range update.Fields {
		u.Fields[k] = v
	}
	if update.Links != nil {
		u.Links = append([]Link(nil), update.Links...)
	}
	return copyUser(u), nil
}

func (s *fakeStore) FindByID(_ context.Context, _ string, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func copyUser(u *User) *User {
	out := *u
	out.Fields = map[string]interface{}{}
	for k, v := range u.Fields {
		out.Fields[k] = v
	}
	out.Links = append([]Link(nil), u.Links...)
	return &out
}

func testConfig() *Config {
	return &Config{
		ServerURL:       "http://localhost:3000",
		Secret:          "s3cr3t-signing-key",
		SuccessRedirect: "/welcome",
		FailureRedirect: "/login-failed",
		Strategies: []*Strategy{{
			Name:         "acme",
			IssuerURL:    "https://issuer.example.com",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			Scopes:       []string{"email", "profile"},
		}},
	}
}

func testFlow(t *testing.T, cfg *Config, opt ...Option) (*Flow, *fakeClient, *fakeStore) {
	t.Helper()
	client := newFakeClient()
	store := newFakeStore()
	opt = append([]Option{WithProviderClient(client)}, opt...)
	flow, err := NewFlow(cfg, store, opt...)
	require.NoError(t, err)
	return flow, client, store
}

// callbackURL builds an authorization-response URL for the acme strategy.
func callbackURL(t *testing.T, state string) *url.URL {
	t.Helper()
	u, err := url.Parse("http://localhost:3000/api/oauth/acme/callback?code=auth-code&state=" + url.QueryEscape(state))
	require.NoError(t, err)
	return u
}

func transientHeader(verifier, state string) string {
	return verifierCookie + "=" + verifier + "; " + stateCookie + "=" + state
}
