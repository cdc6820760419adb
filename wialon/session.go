package wialon

// SessionState represents the authentication state of a Client
type SessionState int

const (
	// StateUnauthenticated means no session id is held
	StateUnauthenticated SessionState = iota
	// StateAuthenticated means a session id is attached to every call
	StateAuthenticated
)

// String returns the string representation of a SessionState
func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State returns the current session state
func (c *Client) State() SessionState {
	if c.sessionID == "" {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// IsAuthenticated checks if a session id is held
func (c *Client) IsAuthenticated() bool {
	return c.State() == StateAuthenticated
}

// SessionID returns the current session id, empty when unauthenticated
func (c *Client) SessionID() string {
	return c.sessionID
}

// UserID returns the id of the user captured at login, zero when unknown
func (c *Client) UserID() int64 {
	return c.userID
}

func (c *Client) setSession(sid string, userID int64) {
	c.sessionID = sid
	c.userID = userID
}

func (c *Client) clearSession() {
	c.sessionID = ""
	c.userID = 0
}
