package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/BrandonDHaskell/reviewflow/internal/auth"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
)

type actorCtxKey struct{}

// ActorHeader carries the actor id when no JWT secret is configured.
const ActorHeader = "X-Actor-ID"

// actorMiddleware resolves the acting identity. With a secret, a valid bearer
// token is mandatory; without one the X-Actor-ID header is trusted as-is.
func actorMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor string
			if secret != "" {
				tok, ok := auth.BearerToken(r.Header.Get("Authorization"))
				if !ok {
					writeError(w, http.StatusUnauthorized, "unauthenticated", "bearer token required")
					return
				}
				id, err := auth.ParseActorToken(secret, tok)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
					return
				}
				actor = id
			} else {
				actor = strings.TrimSpace(r.Header.Get(ActorHeader))
			}
			ctx := context.WithValue(r.Context(), actorCtxKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ActorFromContext(ctx context.Context) string {
	a, _ := ctx.Value(actorCtxKey{}).(string)
	return a
}

// adminMiddleware admits only actors granted admin in the RoleRegistry.
// Anonymous callers and workflow roles get 403.
func adminMiddleware(roles *service.RoleRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if roles == nil || !roles.IsAdmin(ActorFromContext(r.Context())) {
				writeError(w, http.StatusForbidden, string(service.KindUnauthorized), "admin rights required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
