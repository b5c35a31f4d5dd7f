package entity

import (
	"time"

	"gorm.io/datatypes"
)

type SecurityAction string

const (
	LoginSuccess    SecurityAction = "login_success"
	LoginFailed     SecurityAction = "login_failed"
	MFAChallenged   SecurityAction = "mfa_challenged"
	MFAFailed       SecurityAction = "mfa_failed"
	Logout          SecurityAction = "logout"
	SessionRevoked  SecurityAction = "session_revoked"
	MFAEnabled      SecurityAction = "mfa_enabled"
	MFADisabled     SecurityAction = "mfa_disabled"
	PasswordChanged SecurityAction = "password_changed"
)

type SecurityLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	UserID *int64 `gorm:"index"`
	User   *User  `gorm:"constraint:OnDelete:SET NULL"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:varchar(32);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
