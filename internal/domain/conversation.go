package domain

// Message is one turn of dialogue. Once appended to a transcript it is never modified.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`
}

// Session is the persisted unit owned by the caller layer: metadata plus the
// conversation state threaded through the workflow engine.
type Session struct {
	ID        SessionID
	UserID    UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp

	State SessionState
}

// Clone returns a deep copy so stores never share state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.State = s.State.Clone()
	return &out
}
