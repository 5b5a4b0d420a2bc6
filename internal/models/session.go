package models

// SessionState is the lifecycle position of a portal session.
type SessionState string

const (
	StateAnonymous     SessionState = "anonymous"
	StateAuthenticated SessionState = "authenticated"
	StateExpired       SessionState = "expired"
	StateLoggedOut     SessionState = "logged_out"
)

// Principal is the authenticated identity driving authorization decisions.
type Principal struct {
	Token string `json:"-"`
	Role  Role   `json:"role"`
	ID    int64  `json:"id"`
}

// Complete reports whether all three principal fields are usable.
func (p Principal) Complete() bool {
	return p.Token != "" && p.Role.Valid() && p.ID > 0
}

// Session is the persisted session as read back from a store. Role is kept
// raw so that a partially written or tampered entry can be told apart from
// a valid one.
type Session struct {
	Token       string
	Role        string
	PrincipalID int64
}

// Authenticated reports whether a credential is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Principal returns the session's principal when token, role and id are
// all usable.
func (s Session) Principal() (Principal, bool) {
	role, _ := ParseRole(s.Role)
	p := Principal{Token: s.Token, Role: role, ID: s.PrincipalID}
	if !p.Complete() {
		return Principal{}, false
	}
	return p, true
}

// SessionFromPrincipal is the persisted form of p.
func SessionFromPrincipal(p Principal) Session {
	return Session{Token: p.Token, Role: string(p.Role), PrincipalID: p.ID}
}
