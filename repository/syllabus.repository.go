package repository

import (
	"certhub/models"
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SyllabusCount is a syllabus with its number of active certificates.
type SyllabusCount struct {
	SyllabusID       uint   `json:"syllabus_id"`
	SyllabusName     string `json:"syllabus_name"`
	CertificateCount int64  `json:"certificate_count"`
}

type SyllabusRepository struct {
	db *gorm.DB
}

func NewSyllabusRepository(db *gorm.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

func (r *SyllabusRepository) Create(ctx context.Context, syllabus *models.Syllabus) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(syllabus).Error, "create syllabus")
}

func (r *SyllabusRepository) Save(ctx context.Context, syllabus *models.Syllabus) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(syllabus).Error, "save syllabus")
}

func (r *SyllabusRepository) FindByID(ctx context.Context, id uint) (*models.Syllabus, error) {
	var syllabus models.Syllabus
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&syllabus).Error; err != nil {
		return nil, errors.Wrapf(err, "find syllabus %d", id)
	}
	return &syllabus, nil
}

// List pages through syllabi newest first, optionally filtered by name or description.
func (r *SyllabusRepository) List(ctx context.Context, search string, limit, offset int) ([]models.Syllabus, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Syllabus{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(syllabus_name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count syllabi")
	}

	var syllabi []models.Syllabus
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&syllabi).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list syllabi")
	}
	return syllabi, total, nil
}

// All returns every syllabus ordered by name, for selection lists.
func (r *SyllabusRepository) All(ctx context.Context) ([]models.Syllabus, error) {
	var syllabi []models.Syllabus
	if err := r.db.WithContext(ctx).Order("syllabus_name").Find(&syllabi).Error; err != nil {
		return nil, errors.Wrap(err, "list syllabi")
	}
	return syllabi, nil
}

func (r *SyllabusRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Syllabus{}).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "count syllabi")
	}
	return total, nil
}

func (r *SyllabusRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Syllabus{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete syllabus")
	}
	return res.RowsAffected, nil
}

// ActiveCounts lists every syllabus with its active certificate count, busiest first.
func (r *SyllabusRepository) ActiveCounts(ctx context.Context) ([]SyllabusCount, error) {
	var rows []SyllabusCount
	err := r.db.WithContext(ctx).Table("syllabi AS s").
		Select("s.id AS syllabus_id, s.syllabus_name AS syllabus_name, COUNT(c.id) AS certificate_count").
		Joins("LEFT JOIN certificates AS c ON s.id = c.syllabus_id AND c.status = ?", models.CertificateActive).
		Group("s.id, s.syllabus_name").
		Order("certificate_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "syllabus certificate counts")
	}
	return rows, nil
}
