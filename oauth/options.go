package oauth

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// WithLogger provides an optional logger for: Flow
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional time source for: Flow, DiscoveryCache. Tests
// use it to advance time deterministically.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *flowOptions:
			v.withNowFunc = now
		case *discoveryOptions:
			v.withNowFunc = now
		}
	}
}

// WithDiscoveryTTL provides an optional issuer metadata lifetime for: Flow,
// DiscoveryCache.
func WithDiscoveryTTL(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *flowOptions:
			v.withDiscoveryTTL = d
		case *discoveryOptions:
			v.withDiscoveryTTL = d
		}
	}
}

// WithProviderClient provides an optional ProviderClient for: Flow. Used to
// substitute the production OIDC client in tests.
func WithProviderClient(c ProviderClient) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok {
			o.withProviderClient = c
		}
	}
}

// WithProviderCA provides an optional CA cert PEM for: OIDCClient
func WithProviderCA(pem string) Option {
	return func(o interface{}) {
		if o, ok := o.(*oidcClientOptions); ok {
			o.withProviderCA = pem
		}
	}
}
