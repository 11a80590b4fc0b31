package oauth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

// newHTTPClient creates the http client used for provider requests. It uses
// the optional CA certificate PEM if provided, otherwise the installed
// system CA chain.
func newHTTPClient(caPEM string) (*http.Client, error) {
	const op = "oauth.newHTTPClient"
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}
