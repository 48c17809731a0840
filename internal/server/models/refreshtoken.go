package models

import "time"

// RefreshToken is a server-stored opaque token exchanged for a new JWT pair.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.Expires)
}
