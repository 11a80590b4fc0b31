package oauth

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Flow implements the login flow and session lifecycle for a configured set
// of identity providers. A Flow is stateless per request; the only shared
// mutable state behind it is the discovery cache, which tolerates races.
type Flow struct {
	cfg        *Config
	store      UserStore
	client     ProviderClient
	cache      *DiscoveryCache
	logger     hclog.Logger
	now        func() time.Time
	strategies map[string]*Strategy
}

// NewFlow validates the configuration and wires the flow. Without
// WithProviderClient it builds the production OIDC client.
// Supported options:
//
//	WithLogger
//	WithProviderClient
//	WithNow
//	WithDiscoveryTTL
func NewFlow(cfg *Config, store UserStore, opt ...Option) (*Flow, error) {
	const op = "oauth.NewFlow"
	if cfg == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: user store is nil: %w", op, ErrNilParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg = cfg.withDefaults()
	opts := getFlowOpts(opt...)

	client := opts.withProviderClient
	if client == nil {
		var err error
		client, err = NewOIDCClient(cfg.redirectURI)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	cache, err := NewDiscoveryCache(client, WithNow(opts.withNowFunc), WithDiscoveryTTL(opts.withDiscoveryTTL))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	strategies := make(map[string]*Strategy, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		strategies[s.Name] = s
	}
	return &Flow{
		cfg:        cfg,
		store:      store,
		client:     client,
		cache:      cache,
		logger:     opts.withLogger,
		now:        opts.withNowFunc,
		strategies: strategies,
	}, nil
}

// Config returns the normalized configuration the flow runs with.
func (f *Flow) Config() *Config {
	return f.cfg
}

// Strategy returns the named strategy, if configured.
func (f *Flow) Strategy(name string) (*Strategy, bool) {
	s, ok := f.strategies[name]
	return s, ok
}

// flowOptions is the set of available options
type flowOptions struct {
	withLogger         hclog.Logger
	withProviderClient ProviderClient
	withNowFunc        func() time.Time
	withDiscoveryTTL   time.Duration
}

func flowDefaults() flowOptions {
	return flowOptions{
		withLogger:       hclog.NewNullLogger(),
		withNowFunc:      time.Now,
		withDiscoveryTTL: DefaultDiscoveryTTL,
	}
}

func getFlowOpts(opt ...Option) flowOptions {
	opts := flowDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	if opts.withNowFunc == nil {
		opts.withNowFunc = time.Now
	}
	if opts.withDiscoveryTTL <= 0 {
		opts.withDiscoveryTTL = DefaultDiscoveryTTL
	}
	return opts
}
