package models

import "time"

// User is an account holder. Email is a pointer so that absent emails are
// stored as NULL and do not collide on the unique index.
type User struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Username    string     `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Email       *string    `json:"email" gorm:"uniqueIndex;type:varchar(254)"`
	Password    string     `json:"-" gorm:"type:varchar(128);not null"` // bcrypt hash, never serialized
	FirstName   string     `json:"first_name" gorm:"type:varchar(150)"`
	LastName    string     `json:"last_name" gorm:"type:varchar(150)"`
	IsSuperuser bool       `json:"is_superuser" gorm:"not null;default:false"`
	IsStaff     bool       `json:"is_staff" gorm:"not null;default:false"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:true"`
	DateJoined  time.Time  `json:"date_joined" gorm:"autoCreateTime"`
	LastLogin   *time.Time `json:"last_login"`
}
