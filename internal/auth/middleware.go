package auth

import (
	"net/http"
	"net/url"
)

const signInPath = "/sign-in"

// RequireRedirect guards form actions: anonymous callers are sent to the
// sign-in page.
func (v *Verifier) RequireRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := v.FromRequest(r)
		if err != nil {
			target := signInPath + "?error=" + url.QueryEscape("You must be signed in")
			http.Redirect(w, r, target, http.StatusSeeOther)

			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireJSON guards API endpoints with a plain 401.
func (v *Verifier) RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := v.FromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))

			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}
