package oauth

import "github.com/quillcms/auth/cookie"

// Logout clears the session cookie and redirects to the configured logout
// target. The deletion directive carries the same attributes the cookie was
// set with so browsers reliably remove it.
func (f *Flow) Logout() *Response {
	return newRedirect(f.cfg.LogoutRedirect,
		cookie.Delete(f.cfg.CookieName, f.cfg.cookieOptions(0)))
}
