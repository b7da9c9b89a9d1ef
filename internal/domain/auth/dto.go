// internal/domain/auth/dto.go
package auth

import "time"

// LoginRequest for user login
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Device    string `json:"device"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
	Landing     Landing   `json:"landing"`
}

// CreateUserRequest for creating staff accounts
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	FullName string `json:"full_name" binding:"max=150"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=manager delivery_agent sales_agent"`
}

// UserInfo minimal user information
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}
}
