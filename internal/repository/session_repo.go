package repository

import (
	"context"
	"errors"
	"time"

	"kkp/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindActive(ctx context.Context, id, userID int64, nonce string) (*entity.Session, error)
	FindPending(ctx context.Context, id, userID int64, noncePrefix string) (*entity.Session, error)
	Activate(ctx context.Context, id int64, nonce string) (bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteAllByUser(ctx context.Context, userID int64) (int64, error)
	UpdateDevice(ctx context.Context, id int64, fcmToken *string, fcmTokenTime int64) error
	UpdateLocation(ctx context.Context, id int64, lon, lat float64, at time.Time) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
}

func (r *sessionRepository) FindActive(ctx context.Context, id, userID int64, nonce string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND user_id = ? AND nonce = ? AND active = ?", id, userID, nonce, true).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

// FindPending matches an inactive session whose nonce starts with
// noncePrefix. The prefix is compared with substr, never LIKE.
func (r *sessionRepository) FindPending(ctx context.Context, id, userID int64, noncePrefix string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND user_id = ? AND active = ?", id, userID, false).
		Where("substr(nonce, 1, ?) = ?", len(noncePrefix), noncePrefix).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

// Activate rotates the nonce and marks the session active in one statement.
// It reports false when the session is gone or already active.
func (r *sessionRepository) Activate(ctx context.Context, id int64, nonce string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ? AND active = ?", id, false).
		Updates(map[string]any{"nonce": nonce, "active": true})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Session{}).
		Error
}

func (r *sessionRepository) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.Session{})
	return result.RowsAffected, result.Error
}

func (r *sessionRepository) UpdateDevice(ctx context.Context, id int64, fcmToken *string, fcmTokenTime int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{"fcm_token": fcmToken, "fcm_token_time": fcmTokenTime}).
		Error
}

func (r *sessionRepository) UpdateLocation(ctx context.Context, id int64, lon, lat float64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{"location_lon": lon, "location_lat": lat, "location_time": at}).
		Error
}
