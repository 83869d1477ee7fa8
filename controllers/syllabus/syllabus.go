package syllabusController

import (
	"certhub/config"
	"certhub/database"
	"certhub/middleware"
	"certhub/models"
	"certhub/repository"
	"certhub/services/bulk"
	"certhub/utils"
	syllabusValidator "certhub/validators/syllabus"
	"context"
	"log"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const perPage = 20

const pdfTypeMessage = "Only PDF files are allowed."

func fileStore() *utils.LocalFileStore {
	return utils.NewLocalFileStore(config.AppConfig.UploadDir)
}

func syllabusRule() utils.UploadRule {
	return utils.SyllabusUploadRule.WithMaxMB(config.AppConfig.MaxSyllabusSizeMB)
}

func syllabusView(syllabus models.Syllabus) fiber.Map {
	return fiber.Map{
		"id":                syllabus.ID,
		"syllabus_name":     syllabus.SyllabusName,
		"description":       syllabus.Description,
		"syllabus_pdf_path": syllabus.SyllabusPdfPath,
		"pdf_url":           utils.GetFileURL(syllabus.SyllabusPdfPath),
		"created_by":        syllabus.CreatedBy,
		"created_at":        syllabus.CreatedAt,
		"updated_at":        syllabus.UpdatedAt,
	}
}

func discardUpload(relPath string) {
	if err := fileStore().Delete(relPath); err != nil {
		log.Printf("[SYLLABUS] could not remove %s: %v", relPath, err)
	}
}

// releasePdf removes a syllabus PDF no certificate snapshot points at any more.
func releasePdf(ctx context.Context, certs *repository.CertificateRepository, path string) {
	if path == "" {
		return
	}
	referenced, err := certs.SyllabusPdfReferenced(ctx, path)
	if err != nil {
		log.Printf("[SYLLABUS] reference check for %s failed: %v", path, err)
		return
	}
	if referenced {
		return
	}
	discardUpload(path)
}

func CreateSyllabus(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSyllabus").(*syllabusValidator.SyllabusRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	session := middleware.SessionFrom(c)

	pdfPath, err := fileStore().Save(reqData.File, syllabusRule())
	if err != nil {
		return middleware.UploadErrorResponse(c, "syllabus_pdf", err, config.AppConfig.MaxSyllabusSizeMB, pdfTypeMessage)
	}

	syllabus := models.Syllabus{
		SyllabusName:    reqData.SyllabusName,
		SyllabusPdfPath: pdfPath,
		Description:     reqData.Description,
	}
	if session != nil {
		syllabus.CreatedBy = &session.AdminID
	}

	if err := repository.NewSyllabusRepository(database.Database.Db).Create(c.UserContext(), &syllabus); err != nil {
		log.Printf("[SYLLABUS] insert failed: %v", err)
		discardUpload(pdfPath)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create syllabus!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Syllabus created successfully!", syllabusView(syllabus))
}

func UpdateSyllabus(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSyllabus").(*syllabusValidator.SyllabusRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	id, _ := c.ParamsInt("id")
	ctx := c.UserContext()
	certs := repository.NewCertificateRepository(database.Database.Db)
	syllabi := certs.Syllabi()

	syllabus, err := syllabi.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Syllabus not found!", nil)
		}
		log.Printf("[SYLLABUS] lookup %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update syllabus!", nil)
	}

	var newPdf string
	if reqData.File != nil {
		newPdf, err = fileStore().Save(reqData.File, syllabusRule())
		if err != nil {
			return middleware.UploadErrorResponse(c, "syllabus_pdf", err, config.AppConfig.MaxSyllabusSizeMB, pdfTypeMessage)
		}
	}

	oldPdf := syllabus.SyllabusPdfPath
	syllabus.SyllabusName = reqData.SyllabusName
	syllabus.Description = reqData.Description
	if newPdf != "" {
		syllabus.SyllabusPdfPath = newPdf
	}

	if err := syllabi.Save(ctx, syllabus); err != nil {
		log.Printf("[SYLLABUS] update %d failed: %v", id, err)
		if newPdf != "" {
			discardUpload(newPdf)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update syllabus!", nil)
	}

	// issued certificates keep their snapshot, so the old PDF may still be in use
	if newPdf != "" {
		releasePdf(ctx, certs, oldPdf)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Syllabus updated successfully!", syllabusView(*syllabus))
}

// DeleteSyllabus removes the syllabus. With delete_certificates=yes its
// certificates go too; otherwise they are detached and keep their snapshot.
func DeleteSyllabus(c *fiber.Ctx) error {
	id, _ := c.Locals("syllabusId").(uint)
	cascade := c.Query("delete_certificates") == "yes" || c.FormValue("delete_certificates") == "yes"
	ctx := c.UserContext()
	certs := repository.NewCertificateRepository(database.Database.Db)

	syllabus, err := certs.Syllabi().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Syllabus not found!", nil)
		}
		log.Printf("[SYLLABUS] lookup %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete syllabus!", nil)
	}

	var (
		affected int64
		images   []string
	)
	err = certs.Transaction(ctx, func(tx *repository.CertificateRepository) error {
		if cascade {
			n, paths, err := tx.DeleteBySyllabus(ctx, id)
			if err != nil {
				return err
			}
			affected, images = n, paths
		} else {
			n, err := tx.DetachSyllabus(ctx, id)
			if err != nil {
				return err
			}
			affected = n
		}
		_, err := tx.Syllabi().Delete(ctx, id)
		return err
	})
	if err != nil {
		log.Printf("[SYLLABUS] delete %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "A database error occurred. No changes were made.", nil)
	}

	bulk.RemoveFiles(fileStore(), images)
	releasePdf(ctx, certs, syllabus.SyllabusPdfPath)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Syllabus deleted successfully!", fiber.Map{
		"certificates_deleted":  cascade,
		"certificates_affected": affected,
	})
}

func ListSyllabi(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSyllabusList").(*syllabusValidator.ListRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	ctx := c.UserContext()
	certs := repository.NewCertificateRepository(database.Database.Db)

	syllabi, total, err := certs.Syllabi().List(ctx, reqData.Search, perPage, (reqData.Page-1)*perPage)
	if err != nil {
		log.Printf("[SYLLABUS] list failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch syllabi!", nil)
	}

	ids := make([]uint, 0, len(syllabi))
	for _, s := range syllabi {
		ids = append(ids, s.ID)
	}
	counts, err := certs.CountBySyllabus(ctx, ids)
	if err != nil {
		log.Printf("[SYLLABUS] certificate counts failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch syllabi!", nil)
	}

	views := make([]fiber.Map, 0, len(syllabi))
	for _, s := range syllabi {
		view := syllabusView(s)
		view["certificate_count"] = counts[s.ID]
		views = append(views, view)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Syllabus list.", fiber.Map{
		"syllabi": views,
		"pagination": fiber.Map{
			"total":       total,
			"page":        reqData.Page,
			"limit":       perPage,
			"total_pages": int(math.Ceil(float64(total) / perPage)),
		},
	})
}

// GetSyllabus returns the syllabus with the certificates currently linked to it.
func GetSyllabus(c *fiber.Ctx) error {
	id, _ := c.Locals("syllabusId").(uint)
	ctx := c.UserContext()
	certs := repository.NewCertificateRepository(database.Database.Db)

	syllabus, err := certs.Syllabi().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Syllabus not found!", nil)
		}
		log.Printf("[SYLLABUS] lookup %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch syllabus!", nil)
	}

	certificates, err := certs.Find(ctx, repository.CertificateFilter{SyllabusID: &id})
	if err != nil {
		log.Printf("[SYLLABUS] certificates for %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch syllabus!", nil)
	}

	view := syllabusView(*syllabus)
	view["certificates"] = certificates
	view["certificate_count"] = len(certificates)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Syllabus details.", view)
}
