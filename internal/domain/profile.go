package domain

// ProfileSummary is the read-only slice of a user profile the matchmaking
// flow needs. Profiles themselves are owned by the profile service.
type ProfileSummary struct {
	UserID      int      `json:"user_id" db:"user_id"`
	DisplayName string   `json:"display_name" db:"display_name"`
	PhotoURL    *string  `json:"photo_url" db:"photo_url"`
	Interests   []string `json:"interests" db:"interests"`
}
