package models

// User is an installer or operator account. Sessions reference the installer by ID.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
