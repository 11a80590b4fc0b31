// Package plugin wires an oauth.Flow into a host CMS configuration: it adds
// the link-tracking field to the user collection, registers the session
// authenticator, and mounts the login, callback and logout routes. It is
// glue only; all flow semantics live in the oauth package.
package plugin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quillcms/auth/oauth"
)

// LinksFieldName is the array field added to the user collection to hold
// provider links.
const LinksFieldName = "oauthLinks"

// Field mirrors a host collection field definition.
type Field struct {
	Name   string
	Type   string
	Hidden bool
	Index  bool
	Fields []Field
}

// AuthStrategy is a named per-request authenticator registered on a
// collection. Authenticate returns nil for anonymous requests.
type AuthStrategy struct {
	Name         string
	Authenticate func(ctx context.Context, cookieHeader string) *oauth.Identity
}

// Collection mirrors the host's collection configuration surface that this
// package mutates.
type Collection struct {
	Slug           string
	Fields         []Field
	AuthStrategies []AuthStrategy
}

// Endpoint is a route mounted on the host router.
type Endpoint struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Host is the subset of the host configuration the plugin composes into.
type Host struct {
	Collections []*Collection
	Endpoints   []Endpoint
}

// Apply mutates the host configuration for the given flow. It is a no-op
// when the flow's config is disabled, and idempotent otherwise: applying
// twice adds the links field, the authenticator and each route exactly once.
func Apply(host *Host, flow *oauth.Flow) error {
	const op = "plugin.Apply"
	switch {
	case host == nil:
		return fmt.Errorf("%s: missing host: %w", op, oauth.ErrNilParameter)
	case flow == nil:
		return fmt.Errorf("%s: missing flow: %w", op, oauth.ErrNilParameter)
	}
	cfg := flow.Config()
	if cfg.Disabled {
		return nil
	}

	col := findCollection(host, cfg.UserCollection)
	if col == nil {
		return fmt.Errorf("%s: user collection %q not found: %w", op, cfg.UserCollection, oauth.ErrNotFound)
	}
	if !hasField(col.Fields, LinksFieldName) {
		col.Fields = append(col.Fields, linksField())
	}
	if !hasAuthStrategy(col.AuthStrategies, oauth.StrategyName) {
		col.AuthStrategies = append(col.AuthStrategies, AuthStrategy{
			Name:         oauth.StrategyName,
			Authenticate: flow.Authenticate,
		})
	}

	for _, ep := range Routes(flow) {
		if !hasEndpoint(host.Endpoints, ep.Method, ep.Path) {
			host.Endpoints = append(host.Endpoints, ep)
		}
	}
	return nil
}

// Routes returns the login and callback endpoints for every configured
// strategy plus the shared logout endpoint.
func Routes(flow *oauth.Flow) []Endpoint {
	var out []Endpoint
	for _, s := range flow.Config().Strategies {
		name := s.Name
		out = append(out,
			Endpoint{
				Method: http.MethodGet,
				Path:   fmt.Sprintf("/oauth/%s/login", name),
				Handler: func(w http.ResponseWriter, r *http.Request) {
					resp, err := flow.Login(r.Context(), name)
					if err != nil {
						http.Error(w, "login failed", http.StatusInternalServerError)
						return
					}
					resp.Write(w)
				},
			},
			Endpoint{
				Method: http.MethodGet,
				Path:   fmt.Sprintf("/oauth/%s/callback", name),
				Handler: func(w http.ResponseWriter, r *http.Request) {
					flow.Callback(r.Context(), name, r.URL, r.Header.Get("Cookie")).Write(w)
				},
			},
		)
	}
	out = append(out, Endpoint{
		Method: http.MethodGet,
		Path:   "/oauth/logout",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			flow.Logout().Write(w)
		},
	})
	return out
}

func linksField() Field {
	return Field{
		Name:   LinksFieldName,
		Type:   "array",
		Hidden: true,
		Fields: []Field{
			{Name: "strategy", Type: "text", Index: true},
			{Name: "sub", Type: "text", Index: true},
		},
	}
}

func findCollection(host *Host, slug string) *Collection {
	for _, c := range host.Collections {
		if c.Slug == slug {
			return c
		}
	}
	return nil
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func hasAuthStrategy(strategies []AuthStrategy, name string) bool {
	for _, s := range strategies {
		if s.Name == name {
			return true
		}
	}
	return false
}

func hasEndpoint(endpoints []Endpoint, method, path string) bool {
	for _, ep := range endpoints {
		if ep.Method == method && ep.Path == path {
			return true
		}
	}
	return false
}
