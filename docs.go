// auth adds OAuth2 / OIDC login to a Go CMS backend. The oauth package
// implements the authorization-code flow with PKCE, links provider
// identities to local users, and issues a signed session cookie; the plugin
// package composes a configured flow into a host's collection schema and
// routes; the store packages provide reference user stores.
//
// See the package documentation of oauth and plugin for usage.
package auth
