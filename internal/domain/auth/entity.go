// internal/domain/auth/entity.go
package auth

import "time"

const (
	RoleManager       = "manager"
	RoleDeliveryAgent = "delivery_agent"
	RoleSalesAgent    = "sales_agent"
)

func ValidRole(role string) bool {
	switch role {
	case RoleManager, RoleDeliveryAgent, RoleSalesAgent:
		return true
	}
	return false
}

// User is a staff account.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Actor is the identity a command runs as. Elevated actors bypass ownership checks.
type Actor struct {
	UserID   int64
	Username string
	Elevated bool
}

// Landing is where a user lands after login.
type Landing string

const (
	LandingDashboard     Landing = "dashboard"
	LandingSalesCockpit  Landing = "sales_cockpit"
	LandingDeliveryBoard Landing = "delivery_board"
)
