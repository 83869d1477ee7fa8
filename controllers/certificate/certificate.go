package certificateController

import (
	"bytes"
	"certhub/config"
	"certhub/database"
	"certhub/middleware"
	"certhub/models"
	"certhub/repository"
	"certhub/services/bulk"
	"certhub/utils"
	certificateValidator "certhub/validators/certificate"
	"context"
	"log"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const perPage = 20

func fileStore() *utils.LocalFileStore {
	return utils.NewLocalFileStore(config.AppConfig.UploadDir)
}

// discardUpload removes a stored upload that is no longer wanted; failures are
// left for the upload sweeper.
func discardUpload(relPath string) {
	if err := fileStore().Delete(relPath); err != nil {
		log.Printf("[CERTIFICATE] could not remove %s: %v", relPath, err)
	}
}

const certificateTypeMessage = "Only JPG, PNG, GIF, or PDF files are allowed for certificate image."

func certificateRule() utils.UploadRule {
	return utils.CertificateUploadRule.WithMaxMB(config.AppConfig.MaxCertificateSizeMB)
}

func uniqueCode(ctx context.Context, certs *repository.CertificateRepository) (string, error) {
	for i := 0; i < 5; i++ {
		code := utils.GenerateCertificateCode()
		taken, err := certs.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique certificate code")
}

func CreateCertificate(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCertificate").(*certificateValidator.CertificateRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	session := middleware.SessionFrom(c)
	ctx := c.UserContext()
	db := database.Database.Db
	certs := repository.NewCertificateRepository(db)

	exists, err := certs.EmailExists(ctx, reqData.Email)
	if err != nil {
		log.Printf("[CERTIFICATE] email check failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create certificate!", nil)
	}
	if exists {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "A certificate has already been issued for this email address.", nil)
	}

	syllabus, err := repository.NewSyllabusRepository(db).FindByID(ctx, reqData.SyllabusRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Selected syllabus not found.", nil)
		}
		log.Printf("[CERTIFICATE] syllabus lookup failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create certificate!", nil)
	}

	imagePath, err := fileStore().Save(reqData.File, certificateRule())
	if err != nil {
		return middleware.UploadErrorResponse(c, "certificate_image", err, config.AppConfig.MaxCertificateSizeMB, certificateTypeMessage)
	}

	code, err := uniqueCode(ctx, certs)
	if err != nil {
		log.Printf("[CERTIFICATE] code generation failed: %v", err)
		discardUpload(imagePath)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create certificate!", nil)
	}

	certificate := models.Certificate{
		Name:                 reqData.Name,
		Email:                reqData.Email,
		SyllabusID:           &syllabus.ID,
		SyllabusName:         syllabus.SyllabusName,
		SyllabusPdfPath:      syllabus.SyllabusPdfPath,
		CertificateImagePath: imagePath,
		IssueDate:            datatypes.Date(reqData.Issued),
		CertificateCode:      code,
		Status:               models.CertificateActive,
	}
	if session != nil {
		certificate.CreatedBy = &session.AdminID
	}

	if err := certs.Create(ctx, &certificate); err != nil {
		log.Printf("[CERTIFICATE] insert failed: %v", err)
		discardUpload(imagePath)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create certificate!", nil)
	}

	utils.AnnounceCertificate(utils.CertificateEvent{
		CertificateCode: certificate.CertificateCode,
		Name:            certificate.Name,
		Email:           certificate.Email,
		SyllabusName:    certificate.SyllabusName,
		IssueDate:       time.Time(certificate.IssueDate).Format("2006-01-02"),
		VerificationURL: VerificationURL(certificate.Name, certificate.Email),
	})

	return middleware.JsonResponse(c, fiber.StatusCreated, true,
		"Certificate created successfully! Certificate Code: "+certificate.CertificateCode, certificateView(certificate))
}

func UpdateCertificate(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCertificate").(*certificateValidator.CertificateRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	id, _ := c.ParamsInt("id")
	ctx := c.UserContext()
	db := database.Database.Db
	certs := repository.NewCertificateRepository(db)

	certificate, err := certs.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
		}
		log.Printf("[CERTIFICATE] lookup %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update certificate!", nil)
	}

	syllabus, err := repository.NewSyllabusRepository(db).FindByID(ctx, reqData.SyllabusRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Selected syllabus not found.", nil)
		}
		log.Printf("[CERTIFICATE] syllabus lookup failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update certificate!", nil)
	}

	var newImage string
	if reqData.File != nil {
		path, err := fileStore().Save(reqData.File, certificateRule())
		if err != nil {
			return middleware.UploadErrorResponse(c, "certificate_image", err, config.AppConfig.MaxCertificateSizeMB, certificateTypeMessage)
		}
		newImage = path
	}

	oldImage := certificate.CertificateImagePath
	certificate.Name = reqData.Name
	certificate.Email = reqData.Email
	certificate.SyllabusID = &syllabus.ID
	certificate.SyllabusName = syllabus.SyllabusName
	certificate.SyllabusPdfPath = syllabus.SyllabusPdfPath
	certificate.Status = models.CertificateStatus(reqData.Status)
	if reqData.IssueDate != "" {
		certificate.IssueDate = datatypes.Date(reqData.Issued)
	}
	if newImage != "" {
		certificate.CertificateImagePath = newImage
	}

	if err := certs.Save(ctx, certificate); err != nil {
		log.Printf("[CERTIFICATE] update %d failed: %v", id, err)
		if newImage != "" {
			discardUpload(newImage)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update certificate!", nil)
	}

	if newImage != "" && oldImage != "" {
		discardUpload(oldImage)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate updated successfully!", certificateView(*certificate))
}

func DeleteCertificate(c *fiber.Ctx) error {
	id, _ := c.Locals("certificateId").(uint)
	ctx := c.UserContext()
	certs := repository.NewCertificateRepository(database.Database.Db)

	var (
		removed int64
		paths   []string
	)
	err := certs.Transaction(ctx, func(tx *repository.CertificateRepository) error {
		n, files, err := tx.DeleteByIDs(ctx, []uint{id})
		removed, paths = n, files
		return err
	})
	if err != nil {
		log.Printf("[CERTIFICATE] delete %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "A database error occurred. No changes were made.", nil)
	}
	if removed == 0 {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
	}

	bulk.RemoveFiles(fileStore(), paths)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate deleted successfully!", nil)
}

func GetCertificate(c *fiber.Ctx) error {
	id, _ := c.Locals("certificateId").(uint)
	certificate, err := repository.NewCertificateRepository(database.Database.Db).FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
		}
		log.Printf("[CERTIFICATE] lookup %d failed: %v", id, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificate!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate details.", certificateView(*certificate))
}

func ListCertificates(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCertificateList").(*certificateValidator.ListRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	ctx := c.UserContext()
	certs := repository.NewCertificateRepository(database.Database.Db)

	filter := repository.CertificateFilter{
		Status: models.CertificateStatus(reqData.Status),
		Search: reqData.Search,
	}

	total, err := certs.Count(ctx, filter)
	if err != nil {
		log.Printf("[CERTIFICATE] count failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	filter.Limit = perPage
	filter.Offset = (reqData.Page - 1) * perPage
	certificates, err := certs.Find(ctx, filter)
	if err != nil {
		log.Printf("[CERTIFICATE] list failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	stats, err := certs.Stats(ctx)
	if err != nil {
		log.Printf("[CERTIFICATE] stats failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	views := make([]fiber.Map, 0, len(certificates))
	for _, certificate := range certificates {
		views = append(views, certificateView(certificate))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate list.", fiber.Map{
		"certificates": views,
		"stats":        stats,
		"pagination": fiber.Map{
			"total":       total,
			"page":        reqData.Page,
			"limit":       perPage,
			"total_pages": int(math.Ceil(float64(total) / perPage)),
		},
	})
}

// BulkAction runs the validated selection. Exports answer with a CSV attachment.
func BulkAction(c *fiber.Ctx) error {
	selection, ok := c.Locals("validatedBulk").(*bulk.Selection)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	executor := bulk.NewExecutor(repository.NewCertificateRepository(database.Database.Db), fileStore())
	outcome, err := executor.Execute(c.UserContext(), middleware.SessionFrom(c), *selection)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, bulk.ErrUnauthorized):
			status = fiber.StatusUnauthorized
		case errors.Is(err, bulk.ErrNothingToExport):
			status = fiber.StatusNotFound
		case errors.Is(err, bulk.ErrEmptySelection), errors.Is(err, bulk.ErrNoAction),
			errors.Is(err, bulk.ErrInvalidSelection), errors.Is(err, bulk.ErrInvalidAction):
			status = fiber.StatusBadRequest
		}
		return middleware.JsonResponse(c, status, false, bulk.Message(err), nil)
	}

	if outcome.Export != nil {
		var buf bytes.Buffer
		if err := outcome.Export.WriteCSV(&buf); err != nil {
			log.Printf("[BULK] writing export failed: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to export certificates!", nil)
		}
		c.Attachment(outcome.Export.Filename)
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Status(fiber.StatusOK).Send(buf.Bytes())
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, outcome.Message, fiber.Map{
		"action":   outcome.Action.Name(),
		"affected": outcome.Affected,
	})
}
