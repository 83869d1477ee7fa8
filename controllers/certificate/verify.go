package certificateController

import (
	"certhub/config"
	"certhub/database"
	"certhub/middleware"
	"certhub/models"
	"certhub/repository"
	"certhub/services/matcher"
	"certhub/utils"
	certificateValidator "certhub/validators/certificate"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"github.com/pkg/errors"
)

// VerificationURL is the public search link that finds this holder's certificates.
func VerificationURL(name, email string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("email", email)
	return config.AppConfig.PublicBaseURL + "/verify?" + q.Encode()
}

func downloadName(certificate models.Certificate) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(certificate.CertificateImagePath)), ".")
	if ext == "" {
		return certificate.CertificateCode + "_certificate"
	}
	return certificate.CertificateCode + "_certificate." + ext
}

func issueDate(certificate models.Certificate) string {
	t := time.Time(certificate.IssueDate)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func certificateView(certificate models.Certificate) fiber.Map {
	return fiber.Map{
		"id":               certificate.ID,
		"certificate_code": certificate.CertificateCode,
		"name":             certificate.Name,
		"email":            certificate.Email,
		"syllabus_id":      certificate.SyllabusID,
		"syllabus_name":    certificate.SyllabusName,
		"syllabus_pdf_url": utils.GetFileURL(certificate.SyllabusPdfPath),
		"image_url":        utils.GetFileURL(certificate.CertificateImagePath),
		"issue_date":       issueDate(certificate),
		"status":           certificate.Status,
		"created_by":       certificate.CreatedBy,
		"created_at":       certificate.CreatedAt,
		"updated_at":       certificate.UpdatedAt,
	}
}

// Verify is the public name+email search. Only active certificates are returned
// and the holder's email is not echoed back.
func Verify(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedVerify").(*certificateValidator.VerifyRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	m := matcher.New(
		repository.NewCertificateRepository(database.Database.Db),
		matcher.Options{Phonetic: config.AppConfig.SearchPhonetic},
	)
	results, err := m.Search(c.UserContext(), reqData.Name, reqData.Email)
	if err != nil {
		if errors.Is(err, matcher.ErrEmptyQuery) {
			return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Please enter both your name and email address.", []fiber.Map{})
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Search failed!", []fiber.Map{})
	}

	hits := make([]fiber.Map, 0, len(results))
	for _, r := range results {
		certificate := r.Certificate
		hits = append(hits, fiber.Map{
			"certificate_code": certificate.CertificateCode,
			"name":             certificate.Name,
			"syllabus_name":    certificate.SyllabusName,
			"syllabus_pdf_url": utils.GetFileURL(certificate.SyllabusPdfPath),
			"issue_date":       issueDate(certificate),
			"status":           certificate.Status,
			"match":            r.Match,
			"image_url":        utils.GetFileURL(certificate.CertificateImagePath),
			"download_name":    downloadName(certificate),
			"verification_url": VerificationURL(reqData.Name, reqData.Email),
			"share_text":       fmt.Sprintf("I completed \"%s\" from %s!", certificate.SyllabusName, config.AppConfig.OrgName),
		})
	}

	if len(hits) == 0 {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No certificates found.", hits)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, fmt.Sprintf("Found %d certificate(s).", len(hits)), hits)
}

// PublicStats backs the landing page counters.
func PublicStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := database.Database.Db
	certs := repository.NewCertificateRepository(db)
	syllabi := repository.NewSyllabusRepository(db)

	active, err := certs.Count(ctx, repository.CertificateFilter{Status: models.CertificateActive})
	if err != nil {
		log.Printf("[STATS] active count failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load statistics!", nil)
	}
	syllabusCount, err := syllabi.Count(ctx)
	if err != nil {
		log.Printf("[STATS] syllabus count failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load statistics!", nil)
	}
	perSyllabus, err := syllabi.ActiveCounts(ctx)
	if err != nil {
		log.Printf("[STATS] per-syllabus counts failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load statistics!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Statistics.", fiber.Map{
		"active_certificates": active,
		"total_syllabi":       syllabusCount,
		"syllabi":             perSyllabus,
	})
}

// DashboardStats is the admin overview, including certificates issued this month.
func DashboardStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := database.Database.Db
	certs := repository.NewCertificateRepository(db)

	stats, err := certs.Stats(ctx)
	if err != nil {
		log.Printf("[DASHBOARD] certificate stats failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load dashboard!", nil)
	}
	syllabusCount, err := repository.NewSyllabusRepository(db).Count(ctx)
	if err != nil {
		log.Printf("[DASHBOARD] syllabus count failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load dashboard!", nil)
	}
	thisMonth, err := certs.CountIssuedBetween(ctx, now.BeginningOfMonth(), now.EndOfMonth())
	if err != nil {
		log.Printf("[DASHBOARD] monthly count failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load dashboard!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard statistics.", fiber.Map{
		"total_syllabi":        syllabusCount,
		"total_certificates":   stats.Total,
		"active_certificates":  stats.Active,
		"revoked_certificates": stats.Revoked,
		"issued_this_month":    thisMonth,
	})
}
