package auth

import (
	"context"
	"net/http"
	"slices"

	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
	"ticketnepal/internal/utils"
)

type contextKey string

const actorKey contextKey = "actor"

// Middleware verifies the bearer token and stores the actor in the request context.
func Middleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", err.Error()))
				return
			}

			actor, _, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", err.Error())
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole rejects actors whose role is not listed. Must run after Middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || !slices.Contains(roles, actor.Role) {
				utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Helper to extract the actor in handlers
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}
