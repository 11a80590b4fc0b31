package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/quillcms/auth/cookie"
)

// placeholderEmailDomain keys accounts whose provider profile carries no
// usable email address.
const placeholderEmailDomain = "oauth.local"

// Callback processes the provider's authorization response for the named
// strategy and always terminates with a redirect: the success redirect with
// a fresh session cookie, or the failure redirect annotated with a reason.
// The transient verifier/state cookies are single-use and are cleared on
// both paths.
func (f *Flow) Callback(ctx context.Context, strategyName string, reqURL *url.URL, cookieHeader string) *Response {
	const op = "oauth.Flow.Callback"
	strategy, ok := f.strategies[strategyName]
	if !ok {
		f.logger.Error("callback for unknown strategy", "op", op, "strategy", strategyName)
		return f.failureRedirect(ReasonCallbackFailed)
	}

	user, result, err := f.processCallback(ctx, strategy, reqURL, cookieHeader)
	if err != nil {
		reason := reasonFor(err)
		switch reason {
		case ReasonMissingState, ReasonRegistrationDisabled:
			f.logger.Warn("callback rejected", "op", op, "strategy", strategy.Name, "reason", string(reason), "err", err)
		default:
			f.logger.Error("callback failed", "op", op, "strategy", strategy.Name, "err", err)
		}
		return f.failureRedirect(reason)
	}

	token, err := f.mintSession(user.ID)
	if err != nil {
		f.logger.Error("unable to mint session credential", "op", op, "strategy", strategy.Name, "err", err)
		return f.failureRedirect(ReasonCallbackFailed)
	}

	cookies := []string{
		cookie.Serialize(f.cfg.CookieName, token, f.cfg.cookieOptions(int(f.cfg.SessionTTL.Seconds()))),
	}
	cookies = append(cookies, f.clearTransient()...)
	resp := newRedirect(f.cfg.SuccessRedirect, cookies...)

	if f.cfg.AfterLogin != nil {
		// best-effort: a hook failure never blocks the redirect
		if err := f.cfg.AfterLogin(ctx, user, result); err != nil {
			f.logger.Error("after-login hook failed", "op", op, "strategy", strategy.Name, "err", err)
		}
	}
	return resp
}

// processCallback runs the exchange-and-resolve pipeline: validate transient
// cookies, exchange the code, fetch and map the profile, and find, create or
// update the local user. Any step failing aborts to the failure path with
// its reason.
func (f *Flow) processCallback(ctx context.Context, strategy *Strategy, reqURL *url.URL, cookieHeader string) (*User, *LoginResult, error) {
	md, err := f.cache.Resolve(ctx, strategy)
	if err != nil {
		return nil, nil, err
	}

	cookies := cookie.Parse(cookieHeader)
	verifier, state := cookies[verifierCookie], cookies[stateCookie]
	if verifier == "" || state == "" {
		return nil, nil, fmt.Errorf("transient cookies are absent: %w", ErrMissingState)
	}

	tokens, err := f.client.Exchange(ctx, md, strategy, reqURL, state, verifier)
	if err != nil {
		return nil, nil, err
	}

	if md.UserinfoURL == "" {
		return nil, nil, fmt.Errorf("issuer %s: %w", strategy.IssuerURL, ErrNoUserinfoEndpoint)
	}
	profile, err := f.client.FetchProfile(ctx, tokens.AccessToken, md.UserinfoURL)
	if err != nil {
		return nil, nil, err
	}

	mapped, err := strategy.mapProfile(profile)
	if err != nil {
		return nil, nil, fmt.Errorf("profile mapping failed: %w", err)
	}
	sub, err := subjectOf(profile)
	if err != nil {
		return nil, nil, err
	}
	email, hasEmail := emailOf(profile, sub)

	linkByEmail := hasEmail && !f.cfg.DisableEmailLinking
	if hasEmail && !emailEligible(profile, f.cfg.RequireVerifiedEmail) {
		// the account may still be created; the email just cannot be
		// trusted to match an existing one
		f.logger.Warn("profile email not eligible for linking", "strategy", strategy.Name, "sub", sub)
		linkByEmail = false
	}

	filter := UserFilter{LinkStrategy: strategy.Name, LinkSub: sub}
	if linkByEmail {
		filter.Email = email
	}
	existing, err := f.store.FindOne(ctx, f.cfg.UserCollection, filter)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("user lookup failed: %w", err)
	}

	result := &LoginResult{Strategy: strategy.Name, Subject: sub, Email: email, Profile: profile}
	var user *User
	switch {
	case existing == nil && f.cfg.DisableRegistration:
		return nil, nil, fmt.Errorf("no account for subject %q: %w", sub, ErrRegistrationDisabled)

	case existing == nil:
		password, err := newPassword()
		if err != nil {
			return nil, nil, err
		}
		user, err = f.store.Create(ctx, f.cfg.UserCollection, NewUser{
			Email:    email,
			Password: password,
			Fields:   mapped,
			Links:    []Link{{Strategy: strategy.Name, Sub: sub}},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("user create failed: %w", err)
		}
		result.Created = true
		f.logger.Info("created user from oauth profile", "strategy", strategy.Name, "user_id", user.ID)

	default:
		user, err = f.store.Update(ctx, f.cfg.UserCollection, existing.ID, UserUpdate{
			Fields: mapped,
			Links:  replaceLink(existing.Links, Link{Strategy: strategy.Name, Sub: sub}),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("user update failed: %w", err)
		}
		f.logger.Info("synced user from oauth profile", "strategy", strategy.Name, "user_id", user.ID)
	}

	return user, result, nil
}

// failureRedirect builds the failure-path response, annotated with the
// machine-readable reason and clearing the single-use transient cookies.
func (f *Flow) failureRedirect(reason Reason) *Response {
	location := f.cfg.FailureRedirect
	if reason != "" {
		sep := "?"
		if strings.Contains(location, "?") {
			sep = "&"
		}
		location += sep + "error=" + string(reason)
	}
	return newRedirect(location, f.clearTransient()...)
}

func (f *Flow) clearTransient() []string {
	opts := f.cfg.cookieOptions(0)
	return []string{
		cookie.Delete(verifierCookie, opts),
		cookie.Delete(stateCookie, opts),
	}
}

// subjectOf extracts the required stable subject identifier, coerced to a
// string.
func subjectOf(profile map[string]interface{}) (string, error) {
	switch v := profile["sub"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("profile has no usable sub claim: %w", ErrMissingSubject)
}

// emailOf resolves the profile email, lowercased and trimmed, falling back
// to a synthetic placeholder keyed by the subject. The second return
// reports whether the profile supplied a real email.
func emailOf(profile map[string]interface{}, sub string) (string, bool) {
	if v, ok := profile["email"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.ToLower(strings.TrimSpace(v)), true
	}
	return sub + "@" + placeholderEmailDomain, false
}

// emailEligible applies the verified-email gate: with requireVerified the
// profile must explicitly mark the email verified; otherwise the email is
// eligible unless explicitly marked unverified.
func emailEligible(profile map[string]interface{}, requireVerified bool) bool {
	v, ok := profile["email_verified"].(bool)
	if requireVerified {
		return ok && v
	}
	return !ok || v
}

// replaceLink replaces any existing link for the same strategy, leaving
// links for other strategies untouched.
func replaceLink(links []Link, link Link) []Link {
	out := make([]Link, 0, len(links)+1)
	for _, l := range links {
		if l.Strategy != link.Strategy {
			out = append(out, l)
		}
	}
	return append(out, link)
}
