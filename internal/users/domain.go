// Package users provides staff account listing and role assignment.
package users

import "time"

// User is a staff account. Password material never leaves the repository
// layer; this shape is safe to serialize.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
