package model

import "time"

// Roles stored in users.role and carried in the access token.
const (
	RoleCustomer = "CUSTOMER"
	RoleSupplier = "SUPPLIER"
	RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  These structs are used by the repository layer; handlers define
// their own response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – CUSTOMER, SUPPLIER or ADMIN.
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
