package core

import "net/http"

// Response renders itself to the client. Handlers return a Response instead
// of writing to the ResponseWriter directly so status, headers and body stay
// in one place.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Render writes resp and falls back to a bare 500 when rendering itself
// fails. Use it as the final step of every handler.
func Render(w http.ResponseWriter, r *http.Request, resp Response) {
	if err := resp.Render(w, r); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
