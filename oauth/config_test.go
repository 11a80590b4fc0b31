package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErrs []string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:     "missing-server-url",
			mutate:   func(c *Config) { c.ServerURL = "" },
			wantErrs: []string{"server URL is empty"},
		},
		{
			name: "accumulates-all-violations",
			mutate: func(c *Config) {
				c.Secret = ""
				c.SuccessRedirect = ""
				c.FailureRedirect = ""
			},
			wantErrs: []string{"secret is empty", "success redirect is empty", "failure redirect is empty"},
		},
		{
			name:     "no-strategies",
			mutate:   func(c *Config) { c.Strategies = nil },
			wantErrs: []string{"no strategies configured"},
		},
		{
			name: "duplicate-strategy-names",
			mutate: func(c *Config) {
				dup := *c.Strategies[0]
				c.Strategies = append(c.Strategies, &dup)
			},
			wantErrs: []string{`duplicate strategy name "acme"`},
		},
		{
			name: "invalid-strategy-reported",
			mutate: func(c *Config) {
				c.Strategies[0].ClientID = ""
				c.Strategies[0].IssuerURL = "ftp://nope"
			},
			wantErrs: []string{"client id is empty", "scheme is not http or https"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.wantErrs) == 0 {
				require.NoError(err)
				return
			}
			require.Error(err)
			for _, want := range tt.wantErrs {
				assert.Contains(err.Error(), want)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	got := testConfig().withDefaults()
	assert.Equal(DefaultUserCollection, got.UserCollection)
	assert.Equal(DefaultCookieName, got.CookieName)
	assert.Equal(DefaultLogoutRedirect, got.LogoutRedirect)
	assert.Equal(DefaultSessionTTL, got.SessionTTL)
	assert.Equal("Lax", string(got.CookieSameSite))

	cfg := testConfig()
	cfg.UserCollection = "members"
	cfg.SessionTTL = time.Hour
	got = cfg.withDefaults()
	assert.Equal("members", got.UserCollection)
	assert.Equal(time.Hour, got.SessionTTL)
}

func TestConfig_RedirectURI(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	cfg := &Config{ServerURL: "https://cms.example.com/"}
	assert.Equal("https://cms.example.com/api/oauth/acme/callback", cfg.redirectURI("acme"))
}

func TestClientSecret_Redaction(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	secret := ClientSecret("super-secret")
	assert.Equal(RedactedClientSecret, secret.String())
	assert.Equal(RedactedClientSecret, fmt.Sprintf("%s", secret))

	b, err := json.Marshal(struct{ Secret ClientSecret }{secret})
	require.NoError(err)
	assert.NotContains(string(b), "super-secret")
}

func TestNewFlow(t *testing.T) {
	t.Parallel()
	t.Run("nil-config", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewFlow(nil, newFakeStore())
		assert.True(errors.Is(err, ErrNilParameter))
	})
	t.Run("nil-store", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewFlow(testConfig(), nil)
		assert.True(errors.Is(err, ErrNilParameter))
	})
	t.Run("invalid-config", func(t *testing.T) {
		assert := assert.New(t)
		cfg := testConfig()
		cfg.Secret = ""
		_, err := NewFlow(cfg, newFakeStore())
		assert.True(errors.Is(err, ErrInvalidParameter))
	})
	t.Run("strategy-lookup", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		flow, _, _ := testFlow(t, testConfig())
		s, ok := flow.Strategy("acme")
		require.True(ok)
		assert.Equal("acme", s.Name)
		_, ok = flow.Strategy("nope")
		assert.False(ok)
	})
}
