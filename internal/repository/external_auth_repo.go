package repository

import (
	"context"
	"errors"

	"kkp/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExternalAuthRepository interface {
	Create(ctx context.Context, link *entity.ExternalAuth) error
	FindByExternalID(ctx context.Context, kind entity.ExternalAuthType, externalID string) (*entity.ExternalAuth, error)
	FindByUser(ctx context.Context, userID int64) (*entity.ExternalAuth, error)
}

type externalAuthRepository struct {
	db *gorm.DB
}

func NewExternalAuthRepository(db *gorm.DB) ExternalAuthRepository {
	return &externalAuthRepository{db: db}
}

func (r *externalAuthRepository) Create(ctx context.Context, link *entity.ExternalAuth) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error
}

func (r *externalAuthRepository) FindByExternalID(ctx context.Context, kind entity.ExternalAuthType, externalID string) (*entity.ExternalAuth, error) {
	var link entity.ExternalAuth
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("type = ? AND external_id = ?", kind, externalID).
		First(&link).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &link, err
}

func (r *externalAuthRepository) FindByUser(ctx context.Context, userID int64) (*entity.ExternalAuth, error) {
	var link entity.ExternalAuth
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&link).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &link, err
}
