// internal/models/user.go
package models

import "github.com/google/uuid"

// User is an account known to the identity layer. The room engine itself only
// ever sees the verified ID; the rest exists for login and display.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email,omitempty"`
	Password string    `json:"-"`
	Username string    `json:"username"`

	// IsEphemeral marks guest accounts minted on first contact. They can be
	// claimed into full accounts later.
	IsEphemeral bool `json:"isEphemeral"`
	IsAdmin     bool `json:"isAdmin"`
}
