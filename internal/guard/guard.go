// Package guard decides whether a session may view a role-prefixed path.
package guard

import (
	"errors"
	"strings"
	"time"

	"healthcare-portal/internal/models"
	"healthcare-portal/internal/utils"
)

var (
	// ErrUnauthenticated means no credential is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCorruptSession means a credential is present without a known role
	// or principal id.
	ErrCorruptSession = errors.New("corrupt session")
	// ErrSessionExpired means the credential is a JWT past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden means the path belongs to another role.
	ErrForbidden = errors.New("forbidden")
)

// Options tune a Check.
type Options struct {
	// LoginPath is the public entry point; defaults to "/login".
	LoginPath string
	// ExpireTokens enables the JWT expiry check against Now.
	ExpireTokens bool
	Now          time.Time
}

// Decision is the outcome of a Check. When Admit is false, Redirect holds
// the only place the caller may send the user and Err names the reason.
type Decision struct {
	Admit        bool
	Redirect     string
	Err          error
	ClearSession bool
	Principal    models.Principal
	// State is where the session stands after the check.
	State models.SessionState
}

// Check evaluates a navigation to path for session s.
func Check(path string, s models.Session, opts Options) Decision {
	login := opts.LoginPath
	if login == "" {
		login = "/login"
	}

	if s.Token == "" {
		return Decision{Redirect: login, Err: ErrUnauthenticated, State: models.StateAnonymous}
	}

	principal, ok := s.Principal()
	if !ok {
		return Decision{Redirect: login, Err: ErrCorruptSession, ClearSession: true, State: models.StateAnonymous}
	}

	if opts.ExpireTokens && utils.TokenExpired(s.Token, opts.Now) {
		return Decision{Redirect: login, Err: ErrSessionExpired, ClearSession: true, State: models.StateExpired}
	}

	if !Owns(principal.Role, path) {
		return Decision{Redirect: principal.Role.DashboardPath(), Err: ErrForbidden, Principal: principal, State: models.StateAuthenticated}
	}
	return Decision{Admit: true, Principal: principal, State: models.StateAuthenticated}
}

// Owns reports whether path lies in role's subtree. The match is on whole
// segments, so "/patients" is not inside "/patient".
func Owns(role models.Role, path string) bool {
	prefix := role.PathPrefix()
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
