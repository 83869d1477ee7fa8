package repository

import (
	"certhub/models"
	"certhub/utils"
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const newestFirst = "created_at desc"

// EmailPrefilter narrows candidates to rows whose email equals Normalized after
// stripping spaces/periods and lower-casing, or contains Lowered. Both sides are
// folded in Go (email_lower on the row), so non-ASCII letters compare correctly.
type EmailPrefilter struct {
	Normalized string
	Lowered    string
}

// CertificateFilter is the predicate and ordering for Find and Count.
// A non-nil IDs slice restricts to those ids; an empty one matches nothing.
type CertificateFilter struct {
	IDs        []uint
	Status     models.CertificateStatus
	SyllabusID *uint
	Search     string
	Email      *EmailPrefilter
	OrderBy    string
	Limit      int
	Offset     int
}

type CertificateStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Revoked int64 `json:"revoked"`
}

// CertificateRepository is the certificate store. Inside Transaction the
// repository handed to the callback is bound to the open transaction.
type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Transaction runs fn atomically with read-committed isolation where the
// engine supports choosing one.
func (r *CertificateRepository) Transaction(ctx context.Context, fn func(repo *CertificateRepository) error) error {
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() != "sqlite" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CertificateRepository{db: tx})
	}, opts...)
}

// Syllabi returns a syllabus repository on the same connection or transaction.
func (r *CertificateRepository) Syllabi() *SyllabusRepository {
	return NewSyllabusRepository(r.db)
}

func (r *CertificateRepository) scoped(ctx context.Context, f CertificateFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Certificate{})

	if f.IDs != nil {
		clause, args := utils.InClause("id", f.IDs)
		q = q.Where(clause, args...)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SyllabusID != nil {
		q = q.Where("syllabus_id = ?", *f.SyllabusID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(syllabus_name) LIKE ? OR LOWER(certificate_code) LIKE ?)",
			like, like, like, like,
		)
	}
	if f.Email != nil {
		q = q.Where(
			"(REPLACE(REPLACE(email_lower, ' ', ''), '.', '') = ? OR email_lower LIKE ?)",
			f.Email.Normalized, "%"+f.Email.Lowered+"%",
		)
	}
	return q
}

func (r *CertificateRepository) Find(ctx context.Context, f CertificateFilter) ([]models.Certificate, error) {
	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = newestFirst
	}

	q := r.scoped(ctx, f).Order(orderBy)
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var certificates []models.Certificate
	if err := q.Find(&certificates).Error; err != nil {
		return nil, errors.Wrap(err, "find certificates")
	}
	return certificates, nil
}

func (r *CertificateRepository) Count(ctx context.Context, f CertificateFilter) (int64, error) {
	var total int64
	if err := r.scoped(ctx, f).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "count certificates")
	}
	return total, nil
}

func (r *CertificateRepository) FindByID(ctx context.Context, id uint) (*models.Certificate, error) {
	var certificate models.Certificate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&certificate).Error; err != nil {
		return nil, errors.Wrapf(err, "find certificate %d", id)
	}
	return &certificate, nil
}

func (r *CertificateRepository) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	var certificate models.Certificate
	if err := r.db.WithContext(ctx).Where("certificate_code = ?", code).First(&certificate).Error; err != nil {
		return nil, errors.Wrapf(err, "find certificate %s", code)
	}
	return &certificate, nil
}

// EmailExists checks the raw email string, which is the uniqueness rule at issuance.
func (r *CertificateRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).Where("email = ?", email).Count(&total).Error; err != nil {
		return false, errors.Wrap(err, "check certificate email")
	}
	return total > 0, nil
}

func (r *CertificateRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).Where("certificate_code = ?", code).Count(&total).Error; err != nil {
		return false, errors.Wrap(err, "check certificate code")
	}
	return total > 0, nil
}

func (r *CertificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(certificate).Error, "create certificate")
}

func (r *CertificateRepository) Save(ctx context.Context, certificate *models.Certificate) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(certificate).Error, "save certificate")
}

// UpdateStatus sets status on every matching id and returns the rows changed.
func (r *CertificateRepository) UpdateStatus(ctx context.Context, ids []uint, status models.CertificateStatus) (int64, error) {
	clause, args := utils.InClause("id", ids)
	res := r.db.WithContext(ctx).Model(&models.Certificate{}).Where(clause, args...).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "update certificate status")
	}
	return res.RowsAffected, nil
}

// DeleteByIDs removes the rows and returns their non-empty image paths so the
// caller can clean up files once the surrounding transaction commits.
func (r *CertificateRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, []string, error) {
	clause, args := utils.InClause("id", ids)
	return r.deleteWhere(ctx, clause, args...)
}

func (r *CertificateRepository) DeleteBySyllabus(ctx context.Context, syllabusID uint) (int64, []string, error) {
	return r.deleteWhere(ctx, "syllabus_id = ?", syllabusID)
}

func (r *CertificateRepository) deleteWhere(ctx context.Context, clause string, args ...interface{}) (int64, []string, error) {
	db := r.db.WithContext(ctx)

	var paths []string
	if err := db.Model(&models.Certificate{}).Where(clause, args...).Pluck("certificate_image_path", &paths).Error; err != nil {
		return 0, nil, errors.Wrap(err, "collect certificate files")
	}

	res := db.Where(clause, args...).Delete(&models.Certificate{})
	if res.Error != nil {
		return 0, nil, errors.Wrap(res.Error, "delete certificates")
	}

	files := paths[:0]
	for _, p := range paths {
		if p != "" {
			files = append(files, p)
		}
	}
	return res.RowsAffected, files, nil
}

// DetachSyllabus clears the syllabus reference but keeps the snapshot fields.
func (r *CertificateRepository) DetachSyllabus(ctx context.Context, syllabusID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("syllabus_id = ?", syllabusID).
		Updates(map[string]interface{}{"syllabus_id": nil, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "detach syllabus")
	}
	return res.RowsAffected, nil
}

func (r *CertificateRepository) CountBySyllabus(ctx context.Context, syllabusIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(syllabusIDs))
	if len(syllabusIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SyllabusID       uint
		CertificateCount int64
	}
	clause, args := utils.InClause("syllabus_id", syllabusIDs)
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Select("syllabus_id, COUNT(*) AS certificate_count").
		Where(clause, args...).
		Group("syllabus_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count certificates by syllabus")
	}

	for _, row := range rows {
		counts[row.SyllabusID] = row.CertificateCount
	}
	return counts, nil
}

func (r *CertificateRepository) Stats(ctx context.Context) (CertificateStats, error) {
	var stats CertificateStats
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS revoked",
			models.CertificateActive, models.CertificateRevoked,
		).
		Scan(&stats).Error
	if err != nil {
		return CertificateStats{}, errors.Wrap(err, "certificate stats")
	}
	return stats, nil
}

func (r *CertificateRepository) CountIssuedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Count(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "count issued certificates")
	}
	return total, nil
}

// SyllabusPdfReferenced reports whether any certificate snapshot still points at path.
func (r *CertificateRepository) SyllabusPdfReferenced(ctx context.Context, path string) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("syllabus_pdf_path = ?", path).
		Count(&total).Error
	if err != nil {
		return false, errors.Wrap(err, "check syllabus pdf references")
	}
	return total > 0, nil
}
