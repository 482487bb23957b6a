package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the portal a user may sign into.
type UserRole string

const (
	RoleCitizen UserRole = "citizen"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is known.
func (r UserRole) Valid() bool {
	return r == RoleCitizen || r == RoleStaff || r == RoleAdmin
}

// DemoUser is an entry of the fixed credential table.
type DemoUser struct {
	Username     string
	PasswordHash []byte
	Role         UserRole
	Name         string
}

// LoginRequest holds credentials for a portal sign-in.
type LoginRequest struct {
	Username string   `json:"username" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=citizen staff admin"`
}

// LoginResponse returns the issued token and the signed-in user.
type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	ExpiresIn   int64    `json:"expiresIn"`
	User        UserInfo `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	Name     string   `json:"name"`
}

// JWTClaims represents the access token payload.
type JWTClaims struct {
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	Name     string   `json:"name"`
	jwt.RegisteredClaims
}

// Info projects the claims into a UserInfo.
func (c *JWTClaims) Info() UserInfo {
	return UserInfo{Username: c.Username, Role: c.Role, Name: c.Name}
}
