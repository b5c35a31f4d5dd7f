package entity

import (
	"time"
)

// Session is one login. Nonce is rotated on MFA activation, which invalidates
// every token minted before it.
type Session struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"not null;index"`
	User   User  `gorm:"constraint:OnDelete:CASCADE"`

	Nonce  string `gorm:"type:varchar(16);not null"`
	Active bool   `gorm:"not null;default:false"`

	FcmToken     *string `gorm:"type:varchar(255)"`
	FcmTokenTime int64   `gorm:"not null;default:0"`

	LocationLon  *float64
	LocationLat  *float64
	LocationTime *time.Time

	CreatedAt time.Time
}
