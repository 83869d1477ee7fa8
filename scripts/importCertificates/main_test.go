package main

import (
	"certhub/config"
	"certhub/database"
	"certhub/models"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.Config{
		DBDriver:   "sqlite",
		DBName:     filepath.Join(t.TempDir(), "import.db"),
		DBLogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

var header = []string{"Certificate Code", "Student Name", "Email", "Syllabus", "Issue Date", "Status", "Created Date"}

func TestImportInsertsAndUpdates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	oldSyllabus := models.Syllabus{SyllabusName: "Intro to Go", SyllabusPdfPath: "syllabi/go.pdf"}
	newSyllabus := models.Syllabus{SyllabusName: "Advanced Go", SyllabusPdfPath: "syllabi/advanced.pdf"}
	require.NoError(t, db.Create(&oldSyllabus).Error)
	require.NoError(t, db.Create(&newSyllabus).Error)

	existing := models.Certificate{
		Name:            "Ken",
		Email:           "ken@example.com",
		SyllabusID:      &oldSyllabus.ID,
		SyllabusName:    oldSyllabus.SyllabusName,
		SyllabusPdfPath: oldSyllabus.SyllabusPdfPath,
		IssueDate:       datatypes.Date(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		CertificateCode: "CERT-00000000000A1",
		Status:          models.CertificateActive,
	}
	require.NoError(t, db.Create(&existing).Error)

	stats, err := importRecords(ctx, db, [][]string{
		header,
		{"CERT-00000000000A1", "Ken Thompson", "ken@bell-labs.com", "advanced go", "2025-04-01", "Revoked", "2025-04-01 10:00:00"},
		{"CERT-00000000000B2", "Rob Pike", "rob@example.com", "Intro to Go", "2025-04-02", "active", ""},
		{"CERT-00000000000C3", "Robert Griesemer", "robert@example.com", "Unknown Course", "", "", ""},
		{"not-a-code", "Bad Row", "bad@example.com", "", "", "", ""},
		{"CERT-00000000000D4", "", "noname@example.com", "", "", "", ""},
		{"CERT-00000000000E5", "Status", "status@example.com", "", "", "archived", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, importStats{Inserted: 2, Updated: 1, Skipped: 3}, stats)

	var updated models.Certificate
	require.NoError(t, db.First(&updated, existing.ID).Error)
	assert.Equal(t, "Ken Thompson", updated.Name)
	assert.Equal(t, "ken@bell-labs.com", updated.Email)
	assert.Equal(t, models.CertificateRevoked, updated.Status)
	require.NotNil(t, updated.SyllabusID)
	assert.Equal(t, newSyllabus.ID, *updated.SyllabusID)
	assert.Equal(t, "Advanced Go", updated.SyllabusName)
	assert.Equal(t, "syllabi/advanced.pdf", updated.SyllabusPdfPath)
	assert.Equal(t, "2025-04-01", time.Time(updated.IssueDate).Format("2006-01-02"))

	var linked models.Certificate
	require.NoError(t, db.Where("certificate_code = ?", "CERT-00000000000B2").First(&linked).Error)
	require.NotNil(t, linked.SyllabusID)
	assert.Equal(t, oldSyllabus.ID, *linked.SyllabusID)

	var unlinked models.Certificate
	require.NoError(t, db.Where("certificate_code = ?", "CERT-00000000000C3").First(&unlinked).Error)
	assert.Nil(t, unlinked.SyllabusID)
	assert.Equal(t, "Unknown Course", unlinked.SyllabusName)
	assert.Equal(t, models.CertificateActive, unlinked.Status)
}

func TestImportRejectsHeaderOnly(t *testing.T) {
	db := newTestDB(t)

	_, err := importRecords(context.Background(), db, [][]string{header})
	assert.Error(t, err)
}
