package models

import (
	"time"
)

type User struct {
	ID                 string
	Username           string
	Email              string
	PasswordHash       string
	Role               string // "User" or "Admin", see internal/auth.Role
	IsAdmin            bool
	IsActive           bool
	IsDeleted          bool
	ResetToken         *string
	ResetTokenExpires  *time.Time
	MustChangePassword bool
	MustUpdateProfile  bool
	CreatedAt          time.Time
}
