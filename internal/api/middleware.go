package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/richi-sixt/calisthenics-progression/internal/auth"
)

// TouchUser records the authenticated user as seen before the request is
// handled. The upsert keeps the local users table in step with the identity
// service; failures are logged and never abort the request.
func (h *Handler) TouchUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := auth.FromContext(r.Context()); ok {
			if err := h.services.Users.EnsureSeen(r.Context(), claims.Subject, claims.Username); err != nil {
				h.logger.Warn("user touch failed",
					zap.String("user_id", claims.Subject),
					zap.Error(err))
			}
		}
		next.ServeHTTP(w, r)
	})
}
