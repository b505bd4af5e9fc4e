package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the payload of access tokens minted by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// ActingUser identifies who performs an operation. It is passed explicitly
// into every mutating service call.
type ActingUser struct {
	ID   string
	Role UserRole
}

// Actor converts verified claims into an ActingUser.
func (c *JWTClaims) Actor() ActingUser {
	if c == nil {
		return ActingUser{}
	}
	return ActingUser{ID: c.UserID, Role: c.Role}
}

// Owns reports whether the actor is the owner identified by ownerID.
func (a ActingUser) Owns(ownerID string) bool {
	return a.ID != "" && a.ID == ownerID
}
