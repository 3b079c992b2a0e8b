package repositories

import (
	"time"

	"timelynx/internal/database/models"

	"gorm.io/gorm"
)

type BodyfileSourceRepository interface {
	Create(source *models.BodyfileSource) error
	FindByName(name string) (*models.BodyfileSource, error)
	FindAll() ([]*models.BodyfileSource, error)
	Update(source *models.BodyfileSource) error
	UpdateTracking(name string, position int64, inode int64, lastLine string) error
}

type bodyfileSourceRepo struct {
	db *gorm.DB
}

func NewBodyfileSourceRepository(db *gorm.DB) BodyfileSourceRepository {
	return &bodyfileSourceRepo{db: db}
}

func (r *bodyfileSourceRepo) Create(source *models.BodyfileSource) error {
	return r.db.Create(source).Error
}

func (r *bodyfileSourceRepo) FindByName(name string) (*models.BodyfileSource, error) {
	var source models.BodyfileSource
	err := r.db.Where("name = ?", name).First(&source).Error
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *bodyfileSourceRepo) FindAll() ([]*models.BodyfileSource, error) {
	var sources []*models.BodyfileSource
	err := r.db.Find(&sources).Error
	return sources, err
}

func (r *bodyfileSourceRepo) Update(source *models.BodyfileSource) error {
	return r.db.Save(source).Error
}

func (r *bodyfileSourceRepo) UpdateTracking(name string, position int64, inode int64, lastLine string) error {
	// Use Exec for better performance with direct SQL execution
	return r.db.Exec(
		"UPDATE bodyfile_sources SET last_position = ?, last_inode = ?, last_line_content = ?, last_read_at = ?, updated_at = ? WHERE name = ?",
		position, inode, lastLine, time.Now(), time.Now(), name,
	).Error
}
