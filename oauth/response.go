package oauth

import "net/http"

// Response is a terminal redirect produced by a flow handler. The
// composition layer writes it onto the host's response primitives; Write
// covers the net/http case.
type Response struct {
	Status     int
	Location   string
	SetCookies []string
}

func newRedirect(location string, cookies ...string) *Response {
	return &Response{
		Status:     http.StatusFound,
		Location:   location,
		SetCookies: cookies,
	}
}

// Write sends the redirect.
func (r *Response) Write(w http.ResponseWriter) {
	for _, c := range r.SetCookies {
		w.Header().Add("Set-Cookie", c)
	}
	w.Header().Set("Location", r.Location)
	w.WriteHeader(r.Status)
}
