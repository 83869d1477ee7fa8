package database

import (
	"certhub/config"
	"certhub/models"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(&config.Config{
		DBDriver:   "sqlite",
		DBName:     filepath.Join(t.TempDir(), "certhub.db"),
		DBLogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []interface{}{&models.Admin{}, &models.Syllabus{}, &models.Certificate{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Certificate{}, "CertificateCode"))
}

func TestMigrateBackfillsEmailLower(t *testing.T) {
	db, err := Open(&config.Config{
		DBDriver:   "sqlite",
		DBName:     filepath.Join(t.TempDir(), "backfill.db"),
		DBLogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	c := models.Certificate{Name: "Élodie", Email: "ÉLODIE@Exemple.fr", CertificateCode: "CERT-0000000000001"}
	require.NoError(t, db.Create(&c).Error)
	assert.Equal(t, "élodie@exemple.fr", c.EmailLower)

	// rows written before the column existed
	require.NoError(t, db.Model(&models.Certificate{}).Where("id = ?", c.ID).UpdateColumn("email_lower", "").Error)
	require.NoError(t, Migrate(db))

	var reloaded models.Certificate
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, "élodie@exemple.fr", reloaded.EmailLower)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, logLevel("silent"))
	assert.Equal(t, logger.Error, logLevel("error"))
	assert.Equal(t, logger.Info, logLevel("info"))
	assert.Equal(t, logger.Warn, logLevel("anything-else"))
}
