package repository

import (
	"context"
	"stillwave-marketplace/internal/model"

	"gorm.io/gorm"
)

type TrackRepository interface {
	FindByID(ctx context.Context, trackID string) (*model.Track, error)
	FindMany(ctx context.Context, trackIDs []string) ([]*model.Track, error)
	ListPublished(ctx context.Context) ([]*model.Track, error)
}

type trackRepoImpl struct {
	db *gorm.DB
}

func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &trackRepoImpl{
		db: db,
	}
}

func (r *trackRepoImpl) FindByID(ctx context.Context, trackID string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Where("id = ?", trackID).
		First(&track).Error

	if err != nil {
		return nil, err
	}

	return &track, nil
}

func (r *trackRepoImpl) FindMany(ctx context.Context, trackIDs []string) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.WithContext(ctx).
		Where("id IN ?", trackIDs).
		Find(&tracks).Error

	if err != nil {
		return nil, err
	}

	return tracks, nil
}

func (r *trackRepoImpl) ListPublished(ctx context.Context) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.WithContext(ctx).
		Where("published = ?", true).
		Order("created_at DESC").
		Find(&tracks).Error

	if err != nil {
		return nil, err
	}

	return tracks, nil
}
