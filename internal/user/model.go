// Package user provides the user model and the user directory repository.
package user

import "time"

// User is a person who can post, react and be mentioned.
type User struct {
	ID          string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

// Label is the name shown in suggestion lists; falls back to the email.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
