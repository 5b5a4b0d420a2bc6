package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/guard"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/session"
	"healthcare-portal/internal/utils"
)

const (
	sessionIDKey = "sessionID"
	sessionKey   = "session"
	principalKey = "principal"
)

// SessionMiddleware loads the session named by the cookie and makes its id
// and token available to downstream handlers and outbound backend calls.
func SessionMiddleware(mgr *session.Manager, cookieName string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := c.Cookie(cookieName)

		s, err := mgr.Get(c.Request.Context(), sid)
		if err != nil {
			log.Error().Err(err).Msg("session store unavailable")
			utils.InternalServerError(c, "Session store unavailable")
			c.Abort()
			return
		}

		ctx := session.WithID(c.Request.Context(), sid)
		ctx = apiclient.WithToken(ctx, s.Token)
		c.Request = c.Request.WithContext(ctx)

		c.Set(sessionIDKey, sid)
		c.Set(sessionKey, s)
		c.Next()
	}
}

// GuardConfig tunes GuardMiddleware.
type GuardConfig struct {
	LoginPath    string
	ExpireTokens bool
	Now          func() time.Time
}

// GuardMiddleware admits a request only when the session's role owns the
// requested path. Refusals always answer with a redirect, never an error
// page. It must run after SessionMiddleware.
func GuardMiddleware(mgr *session.Manager, cfg GuardConfig, log zerolog.Logger) gin.HandlerFunc {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		d := guard.Check(path, GetSession(c), guard.Options{
			LoginPath:    cfg.LoginPath,
			ExpireTokens: cfg.ExpireTokens,
			Now:          now(),
		})

		if !d.Admit {
			if d.ClearSession {
				if err := mgr.Clear(c.Request.Context(), GetSessionID(c), d.Err); err != nil {
					log.Error().Err(err).Msg("failed to clear session")
				}
			}
			log.Debug().Str("path", path).Str("state", string(d.State)).AnErr("reason", d.Err).Str("redirect", d.Redirect).Msg("navigation refused")
			utils.Redirect(c, d.Redirect)
			return
		}

		c.Set(principalKey, d.Principal)
		c.Next()
	}
}

// GetSessionID returns the session id of the request, or "" without a cookie.
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// GetSession returns the persisted session loaded by SessionMiddleware.
func GetSession(c *gin.Context) models.Session {
	v, exists := c.Get(sessionKey)
	if !exists {
		return models.Session{}
	}
	s, _ := v.(models.Session)
	return s
}

// GetPrincipal returns the principal admitted by GuardMiddleware.
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
