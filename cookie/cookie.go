// Package cookie implements the small cookie wire codec shared by the oauth
// flow handlers: parsing a raw Cookie request header, serializing a
// Set-Cookie directive with a fixed attribute order, producing deletion
// directives, and classifying secure origins.
//
// Every handler in this module goes through this codec; none of them parse
// or format cookies on their own.
package cookie

import (
	"net/url"
	"strconv"
	"strings"
)

// SameSite is the value of a cookie's SameSite attribute.
type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// Options are the attributes appended to a serialized cookie. Zero-valued
// attributes are omitted; MaxAge is emitted only when greater than zero
// (Delete always emits Max-Age=0 regardless).
type Options struct {
	Path     string
	MaxAge   int // seconds
	HTTPOnly bool
	SameSite SameSite
	Secure   bool
}

// Parse splits a raw Cookie request header into a name/value map. Values are
// URL-decoded; pairs with an empty name or empty value are dropped; a later
// duplicate name overwrites an earlier one. Parse never fails: a value that
// cannot be decoded is kept verbatim.
func Parse(header string) map[string]string {
	out := map[string]string{}
	if header == "" {
		return out
	}
	for _, part := range strings.Split(header, ";") {
		name, value, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		out[name] = value
	}
	return out
}

// Serialize formats a single Set-Cookie directive. The value is URL-encoded
// and attributes follow in a fixed order: Path, Max-Age, HttpOnly, SameSite,
// Secure. The order carries no meaning for browsers but is stable so output
// can be asserted verbatim.
func Serialize(name, value string, opts Options) string {
	return serialize(name, value, opts, false)
}

// Delete formats a directive that expires the named cookie immediately. Any
// MaxAge in opts is ignored; the directive always carries Max-Age=0.
func Delete(name string, opts Options) string {
	return serialize(name, "", opts, true)
}

func serialize(name, value string, opts Options, expire bool) string {
	parts := []string{name + "=" + url.QueryEscape(value)}
	if opts.Path != "" {
		parts = append(parts, "Path="+opts.Path)
	}
	switch {
	case expire:
		parts = append(parts, "Max-Age=0")
	case opts.MaxAge > 0:
		parts = append(parts, "Max-Age="+strconv.Itoa(opts.MaxAge))
	}
	if opts.HTTPOnly {
		parts = append(parts, "HttpOnly")
	}
	if opts.SameSite != "" {
		parts = append(parts, "SameSite="+string(opts.SameSite))
	}
	if opts.Secure {
		parts = append(parts, "Secure")
	}
	return strings.Join(parts, "; ")
}

// IsSecure reports whether rawURL parses and uses the https scheme. It
// returns false on any parse failure.
func IsSecure(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == "https"
}
