package models

import "time"

// Token is an opaque bearer credential. The unique index on UserID keeps
// at most one live token per user.
type Token struct {
	Key     string    `json:"key" gorm:"primaryKey;type:varchar(40)"`
	UserID  uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	User    User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Created time.Time `json:"created" gorm:"autoCreateTime"`
}

// Expired reports whether the token is older than ttl. A zero ttl never expires.
func (t *Token) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(t.Created) >= ttl
}
