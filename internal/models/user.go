package models

import "time"

// UserModel represents an account that owns summaries and a preference
// profile. Session management lives outside this service; logins issue
// short-lived JWTs.
type UserModel struct {
	Base
	Username      string     `json:"username" gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Password      string     `json:"-"        gorm:"not null"` // bcrypt hash
	Mail          string     `json:"mail"`
	LastLoginTime *time.Time `json:"last_login_time"`
}

func (UserModel) TableName() string { return "users" }
