package domain

import "time"

// User is owned by the profile service. The chat core only reads it and adds to ChatIDs.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	GlobalRole  string    `json:"global_role"`
	ChatIDs     []string  `json:"chatIds"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) HasChat(chatID string) bool {
	for _, id := range u.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

const (
	GlobalRoleUser  = "user"
	GlobalRoleAdmin = "admin"
)
