package model

import "time"

// User represents an account able to sign in to the admin panel. Role is one
// of auth.RoleAdmin / auth.RoleUser; the string lives here untyped because
// the model layer does not depend on the auth package.
//
// FullName is what owner selectors display next to the account id.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	FullName     string    // users.full_name
	PasswordHash string    // users.password_hash
	Role         string    // users.role (ADMIN | USER)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// UserOption is the (id, display name) pair offered by the owner selector
// when an admin assigns a meeting to a user.
type UserOption struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// RefreshToken models a row of `refresh_tokens`. Only the SHA-256 hash of
// the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
