package cachekey

// Global is the payload of system-wide singleton variants.
type Global struct{}

// User is the payload of per-user singleton variants.
type User struct {
	UserID string `json:"user_id"`
}

// UserInput is the payload of per-user variants parameterised by an input.
// Both fields take part in key identity.
type UserInput[H comparable] struct {
	UserID string `json:"user_id"`
	Input  H      `json:"input"`
}

// ForUser builds a UserInput payload.
func ForUser[H comparable](userID string, input H) UserInput[H] {
	return UserInput[H]{UserID: userID, Input: input}
}
