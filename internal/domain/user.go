package domain

import "time"

// User is a console operator account as listed by the backend.
type User struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"user_name"`
	RoleID    Role      `json:"role_id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginRequest is the body of the backend login call.
type LoginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// RegisterRequest creates a new operator account.
type RegisterRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
	RoleID   Role   `json:"role_id"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// UpdateCredentialsRequest changes the caller's own account; CurrentPassword is always required.
type UpdateCredentialsRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password,omitempty"`
	UserName        string `json:"user_name,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

// AdminUpdateUserRequest lets an administrator change another account.
type AdminUpdateUserRequest struct {
	UserName string `json:"user_name,omitempty"`
	Password string `json:"password,omitempty"`
	RoleID   Role   `json:"role_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
