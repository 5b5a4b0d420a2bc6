package routes

import (
	"context"

	"github.com/rs/zerolog"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/session"
)

// ClearSessionOnUnauthorized returns a backend 401 hook that ends the
// session of the request that received it.
func ClearSessionOnUnauthorized(sessions *session.Manager, log zerolog.Logger) apiclient.UnauthorizedFunc {
	return func(ctx context.Context) {
		sid, ok := session.IDFromContext(ctx)
		if !ok {
			return
		}
		if err := sessions.Clear(ctx, sid, apiclient.ErrUnauthorized); err != nil {
			log.Error().Err(err).Msg("failed to clear session after backend 401")
		}
	}
}
