package entity

import "time"

type ExternalAuthType int

const (
	ExternalAuthGoogle ExternalAuthType = 1
)

// ExternalAuth links a user to an identity provider subject.
type ExternalAuth struct {
	ID         int64            `gorm:"primaryKey;autoIncrement"`
	ExternalID string           `gorm:"type:varchar(255);uniqueIndex;not null"`
	UserID     int64            `gorm:"uniqueIndex;not null"`
	User       User             `gorm:"constraint:OnDelete:CASCADE"`
	Type       ExternalAuthType `gorm:"not null"`

	CreatedAt time.Time
}
