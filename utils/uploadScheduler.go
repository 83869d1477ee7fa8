package utils

import (
	"certhub/config"
	"certhub/database"
	"certhub/models"
	"io/fs"
	"log"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Files younger than this may belong to a request that has not committed yet.
const orphanMinAge = time.Hour

// InitializeUploadSweeper schedules SweepOrphanedUploads on SWEEP_SCHEDULE.
func InitializeUploadSweeper(store *LocalFileStore) (*cron.Cron, error) {
	log.Println("[SWEEPER] Initializing upload sweeper...")

	c := cron.New()
	_, err := c.AddFunc(config.AppConfig.SweepSchedule, func() {
		removed, err := SweepOrphanedUploads(database.Database.Db, store, orphanMinAge)
		if err != nil {
			log.Printf("[SWEEPER] Sweep failed: %v", err)
			return
		}
		log.Printf("[SWEEPER] Removed %d orphaned upload(s)", removed)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "schedule %q", config.AppConfig.SweepSchedule)
	}

	c.Start()
	log.Printf("[SWEEPER] Upload sweeper started - schedule %q", config.AppConfig.SweepSchedule)
	return c, nil
}

// SweepOrphanedUploads deletes certificate and syllabus files older than
// minAge that no certificate or syllabus row references.
func SweepOrphanedUploads(db *gorm.DB, store *LocalFileStore, minAge time.Duration) (int, error) {
	referenced, err := referencedUploads(db)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, dir := range []string{CertificateUploadRule.Dir, SyllabusUploadRule.Dir} {
		root := filepath.Join(store.Root, dir)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil || info.ModTime().After(cutoff) {
				return nil
			}

			rel, err := filepath.Rel(store.Root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if referenced[rel] {
				return nil
			}

			if err := store.Delete(rel); err != nil {
				log.Printf("[SWEEPER] Could not remove %s: %v", rel, err)
				return nil
			}
			removed++
			return nil
		})
		if err != nil {
			return removed, errors.Wrapf(err, "walk %s", root)
		}
	}
	return removed, nil
}

func referencedUploads(db *gorm.DB) (map[string]bool, error) {
	sources := []struct {
		model  interface{}
		column string
	}{
		{&models.Certificate{}, "certificate_image_path"},
		{&models.Certificate{}, "syllabus_pdf_path"},
		{&models.Syllabus{}, "syllabus_pdf_path"},
	}

	referenced := make(map[string]bool)
	for _, src := range sources {
		var paths []string
		if err := db.Model(src.model).Distinct().Pluck(src.column, &paths).Error; err != nil {
			return nil, errors.Wrapf(err, "collect %s", src.column)
		}
		for _, p := range paths {
			if p != "" {
				referenced[p] = true
			}
		}
	}
	return referenced, nil
}
