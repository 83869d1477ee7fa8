package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "active"
	CertificateRevoked CertificateStatus = "revoked"
)

// Valid reports whether s is one of the two lifecycle states.
func (s CertificateStatus) Valid() bool {
	return s == CertificateActive || s == CertificateRevoked
}

// Certificate is one issued certificate. Syllabus fields are a snapshot taken at
// issuance and are not foreign-key enforced.
type Certificate struct {
	ID                   uint              `json:"id" gorm:"primaryKey"`
	Name                 string            `json:"name" gorm:"size:255;not null"`
	Email                string            `json:"email" gorm:"size:255;not null;index"`
	EmailLower           string            `json:"-" gorm:"size:255;index"`
	SyllabusID           *uint             `json:"syllabus_id" gorm:"index"`
	SyllabusName         string            `json:"syllabus_name" gorm:"size:255"`
	SyllabusPdfPath      string            `json:"syllabus_pdf_path" gorm:"size:500"`
	CertificateImagePath string            `json:"certificate_image_path" gorm:"size:500"`
	IssueDate            datatypes.Date    `json:"issue_date"`
	CertificateCode      string            `json:"certificate_code" gorm:"size:100;uniqueIndex;not null"`
	Status               CertificateStatus `json:"status" gorm:"size:20;default:'active';index"`
	CreatedBy            *uint             `json:"created_by"`
	CreatedAt            time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// BeforeSave keeps EmailLower in step with Email. SQL LOWER only folds ASCII
// on SQLite.
func (c *Certificate) BeforeSave(tx *gorm.DB) error {
	c.EmailLower = strings.ToLower(c.Email)
	return nil
}
