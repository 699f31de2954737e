package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/logging"
)

// requireToken guards next behind a bearer token. An empty token leaves the
// handler open.
func (s *apiServer) requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	token = strings.TrimSpace(token)
	if token == "" {
		return next
	}
	want := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := bearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
			logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "rejected unauthenticated request", "auth_rejected",
				logging.String("path", r.URL.Path),
				logging.String(logging.FieldErrorHint, "send Authorization: Bearer <api_token>"),
				logging.String(logging.FieldImpact, "request refused"),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="superwire"`)
			s.writeError(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, value, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
