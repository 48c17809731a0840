package models

import "time"

type User struct {
	ID              string
	UserName        string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	IsActive        bool
	IsAdmin         bool
	IsEmailVerified bool
	GoogleID        string
	ProfilePicture  string
	PhoneNumber     string
	LastLoginIP     string
	LoginCount      int
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Role reports the role name exposed by the API.
func (u *User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}
