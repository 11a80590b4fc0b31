// Package oauth implements the OAuth2/OIDC login flow for a headless-CMS
// backend: a PKCE authorization-code login initiator, the callback processor
// that resolves provider profiles onto local user records, a cookie-session
// authenticator, and a logout handler.
//
// The package owns the authentication semantics only. The host framework's
// persistence layer and identity providers are collaborators expressed as
// the UserStore and ProviderClient interfaces; production deployments use
// OIDCClient (go-oidc discovery plus oauth2 code exchange) and one of the
// stores under store/.
//
// A typical wiring:
//
//	flow, err := oauth.NewFlow(&oauth.Config{
//		ServerURL:       "https://cms.example.com",
//		Secret:          secret,
//		SuccessRedirect: "/admin",
//		FailureRedirect: "/login",
//		Strategies:      []*oauth.Strategy{plugin.Google(googleOpts)},
//	}, store)
//
// followed by plugin.Apply to mount the endpoints and register the session
// authenticator on the host configuration.
package oauth
