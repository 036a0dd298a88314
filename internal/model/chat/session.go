package chat

import "time"

// DefaultSessionID addresses the shared log used by callers that do not ask
// for an isolated session.
const DefaultSessionID = ""

// Session describes an isolated conversation log minted on request.
type Session struct {
	ID        string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}
