package repositories

import (
	"context"

	"github.com/cloudreel/cloudreel/internal/models"
	"gorm.io/gorm"
)

// VideoRepository persists and lists processed video uploads.
type VideoRepository interface {
	// Create inserts a new record. The caller only invokes this after the
	// media pipeline has confirmed the upload.
	Create(ctx context.Context, video *models.Video) error
	// ListRecent returns all records ordered by creation time, newest first.
	// An empty slice is a valid result.
	ListRecent(ctx context.Context) ([]models.Video, error)
}

type gormVideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &gormVideoRepository{db: db}
}

func (r *gormVideoRepository) Create(ctx context.Context, video *models.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *gormVideoRepository) ListRecent(ctx context.Context) ([]models.Video, error) {
	videos := make([]models.Video, 0)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}
