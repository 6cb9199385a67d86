package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Require wraps next so that only identities holding role reach it. A nil
// authenticator disables the check and attaches Anonymous. Missing or bad
// credentials get 401, a missing role 403.
func Require(a Authenticator, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a == nil {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Anonymous())))
			return
		}
		id, err := a.Authenticate(r.Context(), r)
		if err != nil {
			if errors.Is(err, ErrMissingCredentials) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="graphcache"`)
			}
			deny(w, http.StatusUnauthorized, err)
			return
		}
		if role != "" && !id.HasRole(role) {
			deny(w, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func deny(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
