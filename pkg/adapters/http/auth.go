package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator identifies the caller of a request. ok is false when the
// request carries no valid credentials.
type Authenticator func(r *http.Request) (caller string, ok bool)

// DenyAll rejects every request.
func DenyAll(*http.Request) (string, bool) {
	return "", false
}

// Anonymous accepts every request as caller.
func Anonymous(caller string) Authenticator {
	return func(*http.Request) (string, bool) {
		return caller, true
	}
}

// BearerTokens accepts "Authorization: Bearer <token>" for the configured
// tokens, mapping each onto its caller id.
func BearerTokens(tokens map[string]string) Authenticator {
	return func(r *http.Request) (string, bool) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		for known, caller := range tokens {
			if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
				return caller, true
			}
		}
		return "", false
	}
}

type callerKey struct{}

// CallerFrom returns the authenticated caller stored in ctx.
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := s.auth(r)
		if !ok || caller == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.caller = caller
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}
