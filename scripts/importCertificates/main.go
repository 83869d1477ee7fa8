package main

import (
	"certhub/config"
	"certhub/database"
	"certhub/models"
	"certhub/repository"
	"certhub/utils"
	"context"
	"encoding/csv"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type importStats struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Imports certificates from a CSV in the admin export format. Rows are keyed
// by certificate code: new codes are inserted, known codes get their name,
// email, syllabus, status and issue date refreshed. Files are not imported.
func main() {
	config.LoadConfig()
	database.ConnectDb()

	path := "certificates.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}
	log.Printf("Total rows to import: %d", len(records)-1)

	stats, err := importRecords(context.Background(), database.Database.Db, records)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("=== Import Complete ===")
	log.Printf("Inserted: %d", stats.Inserted)
	log.Printf("Updated: %d", stats.Updated)
	log.Printf("Skipped: %d", stats.Skipped)
}

func importRecords(ctx context.Context, db *gorm.DB, records [][]string) (importStats, error) {
	var stats importStats
	if len(records) < 2 {
		return stats, errors.New("CSV file is empty or has only headers")
	}

	headerIndex := make(map[string]int)
	for i, h := range records[0] {
		headerIndex[strings.TrimSpace(h)] = i
	}

	certs := repository.NewCertificateRepository(db)
	syllabi, err := certs.Syllabi().All(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "load syllabi")
	}
	syllabusByName := make(map[string]models.Syllabus, len(syllabi))
	for _, s := range syllabi {
		syllabusByName[strings.ToLower(s.SyllabusName)] = s
	}

	for i, row := range records[1:] {
		code := strings.ToUpper(getField(row, headerIndex, "Certificate Code"))
		name := getField(row, headerIndex, "Student Name")
		email := getField(row, headerIndex, "Email")
		syllabusName := getField(row, headerIndex, "Syllabus")
		status := models.CertificateStatus(strings.ToLower(getField(row, headerIndex, "Status")))
		if status == "" {
			status = models.CertificateActive
		}

		if !utils.IsCertificateCode(code) || name == "" || email == "" || !status.Valid() {
			log.Printf("Skipping row %d: bad code, missing name or email, or bad status", i+2)
			stats.Skipped++
			continue
		}

		issued := time.Now()
		if t, err := time.Parse("2006-01-02", getField(row, headerIndex, "Issue Date")); err == nil {
			issued = t
		}

		certificate, err := certs.FindByCode(ctx, code)
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			certificate = &models.Certificate{CertificateCode: code}
		default:
			log.Printf("Error looking up certificate %s: %v", code, err)
			stats.Skipped++
			continue
		}

		certificate.Name = name
		certificate.Email = email
		certificate.Status = status
		certificate.IssueDate = datatypes.Date(issued)
		if syllabusName != "" {
			certificate.SyllabusName = syllabusName
			certificate.SyllabusID = nil
			if s, ok := syllabusByName[strings.ToLower(syllabusName)]; ok {
				id := s.ID
				certificate.SyllabusID = &id
				certificate.SyllabusName = s.SyllabusName
				certificate.SyllabusPdfPath = s.SyllabusPdfPath
			}
		}

		if certificate.ID != 0 {
			if err := certs.Save(ctx, certificate); err != nil {
				log.Printf("Error updating certificate %s: %v", code, err)
				stats.Skipped++
				continue
			}
			stats.Updated++
			continue
		}

		if err := certs.Create(ctx, certificate); err != nil {
			log.Printf("Error inserting certificate %s: %v", code, err)
			stats.Skipped++
			continue
		}
		stats.Inserted++
	}
	return stats, nil
}

// getField safely gets a field from the row by header name
func getField(row []string, headerIndex map[string]int, field string) string {
	if idx, ok := headerIndex[field]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
