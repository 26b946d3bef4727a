package model

import "time"

// Group bundles the platform sessions a user uploads with
type Group struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroupItem holds the session credential for one (group, platform) pair
type GroupItem struct {
	GroupID   int64       `json:"groupId"`
	Type      Platform    `json:"type"`
	Data      SessionData `json:"data"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// SessionData is the opaque credential payload stored as jsonb.
// Only the token is interpreted by the dispatcher.
type SessionData struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
}
