package api

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// requireBasicAuth checks HTTP basic credentials against the configured
// users' bcrypt hashes.
func (s *server) requireBasicAuth() func(http.Handler) http.Handler {
	hashes := make(map[string][]byte, len(s.cfg.Auth.Basic.Users))
	for _, u := range s.cfg.Auth.Basic.Users {
		hashes[u.Username] = []byte(u.Password)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, "authentication required")

				return
			}

			hash, exists := hashes[username]
			if !exists ||
				bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
				s.log.WithField("username", username).
					Debug("Rejected basic auth credentials")
				unauthorized(w, "invalid credentials")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="junitoor"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{msg})
}
