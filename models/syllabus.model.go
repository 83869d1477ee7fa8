package models

import "time"

// Syllabus is an uploaded course document certificates are issued against
type Syllabus struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	SyllabusName    string    `json:"syllabus_name" gorm:"size:255;not null"`
	SyllabusPdfPath string    `json:"syllabus_pdf_path" gorm:"size:500;not null"`
	Description     string    `json:"description" gorm:"type:text"`
	CreatedBy       *uint     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Syllabus) TableName() string {
	return "syllabi"
}
