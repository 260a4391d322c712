package auth

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/mollie-checkout/internal"
	"github.com/frahmantamala/mollie-checkout/internal/transport"
	"github.com/frahmantamala/mollie-checkout/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Validator TokenValidator
}

func NewHandler(validator TokenValidator, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Validator:   validator,
	}
}

// AuthMiddleware requires a valid storefront bearer token and stores its subject in the context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			h.HandleError(w, errors.NewUnauthorizedError("missing authorization token", errors.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Validator.ValidateToken(token)
		if err != nil {
			h.Logger.Warn("auth middleware: token rejected", "error", err, "path", r.URL.Path)
			if stderrors.Is(err, ErrTokenExpired) {
				h.HandleError(w, errors.ErrTokenExpired)
				return
			}
			h.HandleError(w, errors.ErrInvalidToken)
			return
		}

		ctx := errors.ContextWithSubject(r.Context(), claims.Subject)
		ctx = logger.With(ctx, "subject", claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
