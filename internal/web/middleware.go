package web

// middleware.go carries request metadata into the pipeline context and
// authenticates API calls. The bearer token is verified once here; handlers
// downstream read the identity from the context and never see the token.

import (
	"net"
	"net/http"
	"strings"

	"github.com/engagehub/submission/internal/core"
)

// requestMetadata stores the caller's IP and user agent on the context for
// the audit trail.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := core.ContextWithIPAddress(r.Context(), ip)
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth verifies the bearer token and attaches the caller identity.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondJSON(w, http.StatusUnauthorized,
				ErrorResponse{Error: "Authorization required", Code: "UNAUTHORIZED"})
			return
		}

		ident, err := s.auth.Tokens().VerifyAccess(token)
		if err != nil {
			respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
