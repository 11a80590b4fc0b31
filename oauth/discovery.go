package oauth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultDiscoveryTTL is how long resolved issuer metadata is reused before
// a fresh discovery call.
const DefaultDiscoveryTTL = time.Hour

type discoveryEntry struct {
	metadata *ProviderMetadata
	expiry   time.Time
}

// DiscoveryCache memoizes issuer metadata per issuer URL, avoiding a network
// round trip on every login attempt. Entries are recomputed lazily when
// absent or expired; there is no eviction beyond overwrite-on-refresh.
//
// Concurrent resolutions of the same uncached issuer may each perform the
// discovery call: discovery is idempotent and results for one issuer are
// interchangeable, so the last write wins.
type DiscoveryCache struct {
	client ProviderClient
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]discoveryEntry
}

// NewDiscoveryCache creates a cache over the given client's Discover.
// Supported options:
//
//	WithNow
//	WithDiscoveryTTL
func NewDiscoveryCache(client ProviderClient, opt ...Option) (*DiscoveryCache, error) {
	const op = "oauth.NewDiscoveryCache"
	if client == nil {
		return nil, fmt.Errorf("%s: provider client is nil: %w", op, ErrNilParameter)
	}
	opts := getDiscoveryOpts(opt...)
	return &DiscoveryCache{
		client:  client,
		ttl:     opts.withDiscoveryTTL,
		now:     opts.withNowFunc,
		entries: map[string]discoveryEntry{},
	}, nil
}

// Resolve returns the cached metadata for the strategy's issuer while the
// entry is fresh, otherwise performs discovery and stores the result with a
// new expiry.
func (c *DiscoveryCache) Resolve(ctx context.Context, strategy *Strategy) (*ProviderMetadata, error) {
	const op = "oauth.DiscoveryCache.Resolve"
	if strategy == nil {
		return nil, fmt.Errorf("%s: strategy is nil: %w", op, ErrNilParameter)
	}
	c.mu.Lock()
	entry, ok := c.entries[strategy.IssuerURL]
	c.mu.Unlock()
	if ok && entry.expiry.After(c.now()) {
		return entry.metadata, nil
	}

	md, err := c.client.Discover(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.mu.Lock()
	c.entries[strategy.IssuerURL] = discoveryEntry{metadata: md, expiry: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return md, nil
}

// discoveryOptions is the set of available options
type discoveryOptions struct {
	withNowFunc      func() time.Time
	withDiscoveryTTL time.Duration
}

func discoveryDefaults() discoveryOptions {
	return discoveryOptions{
		withNowFunc:      time.Now,
		withDiscoveryTTL: DefaultDiscoveryTTL,
	}
}

func getDiscoveryOpts(opt ...Option) discoveryOptions {
	opts := discoveryDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
