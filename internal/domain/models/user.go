package models

import "time"

// User roles.
const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User is an account record. Accounts are managed by the auth plumbing;
// the core consumes them only to resolve display identity and roles.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Author is the public display identity attached to posts and comments.
// Authorship references are not hard foreign keys: when the account
// behind an ID no longer resolves, UnknownAuthor stands in.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// UnknownAuthor returns the placeholder identity for an unresolvable user ID.
func UnknownAuthor(id string) Author {
	return Author{ID: id, Username: "Unknown", FullName: "Unknown User"}
}
