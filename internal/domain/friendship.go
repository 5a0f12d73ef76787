package domain

import "time"

// FriendshipEdge is one direction of a friendship. A qualifying session
// produces the pair (a→b, b→a) exactly once.
type FriendshipEdge struct {
	OwnerID   int       `json:"owner_id" db:"owner_id"`
	FriendID  int       `json:"friend_id" db:"friend_id"`
	SessionID *string   `json:"session_id,omitempty" db:"session_id"`
	AddedAt   time.Time `json:"added_at" db:"added_at"`
}
