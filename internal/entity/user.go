package entity

import (
	"time"
)

// UserRole is ordered: a higher value includes every lower privilege.
type UserRole int

const (
	UserRoleRegular     UserRole = 0
	UserRoleVet         UserRole = 10
	UserRoleVetAdmin    UserRole = 100
	UserRoleGlobalAdmin UserRole = 999
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleRegular, UserRoleVet, UserRoleVetAdmin, UserRoleGlobalAdmin:
		return true
	}
	return false
}

type User struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	FirstName string   `gorm:"type:varchar(64);not null"`
	LastName  string   `gorm:"type:varchar(64);not null"`
	Email     string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string   `gorm:"type:varchar(128);not null"`
	Role      UserRole `gorm:"not null;default:0"`

	// MfaKey is the base32 TOTP secret; nil when MFA is off.
	MfaKey *string `gorm:"type:varchar(16)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) MFAEnabled() bool {
	return u.MfaKey != nil && *u.MfaKey != ""
}
