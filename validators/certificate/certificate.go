package certificateValidator

import (
	"certhub/middleware"
	"certhub/services/bulk"
	"certhub/validators"
	"encoding/json"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CertificateRequest is the validated create/edit form.
type CertificateRequest struct {
	Name       string `form:"name" validate:"required,max=255"`
	Email      string `form:"email" validate:"required,email,max=255"`
	SyllabusID string `form:"syllabus_id" validate:"required,numeric"`
	IssueDate  string `form:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	Status     string `form:"status" validate:"omitempty,oneof=active revoked"`

	// filled after validation
	SyllabusRef uint                  `form:"-" validate:"-"`
	Issued      time.Time             `form:"-" validate:"-"`
	File        *multipart.FileHeader `form:"-" validate:"-"`
}

type ListRequest struct {
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Search string `query:"search" validate:"max=255"`
	Status string `query:"status" validate:"omitempty,oneof=active revoked"`
}

type VerifyRequest struct {
	Name  string `query:"name" validate:"required,max=255"`
	Email string `query:"email" validate:"required,max=255"`
}

var certificateMessages = map[string]string{
	"name":        "Name is required.",
	"email":       "Valid email is required.",
	"syllabus_id": "Please select a syllabus.",
	"issue_date":  "Issue date must be in YYYY-MM-DD format.",
	"status":      "Invalid status selected.",
}

func parseCertificate(c *fiber.Ctx, requireFile, requireStatus bool) (*CertificateRequest, map[string]string, error) {
	reqData := new(CertificateRequest)
	if err := c.BodyParser(reqData); err != nil {
		return nil, nil, err
	}

	reqData.Name = strings.TrimSpace(reqData.Name)
	reqData.Email = strings.TrimSpace(reqData.Email)
	reqData.SyllabusID = strings.TrimSpace(reqData.SyllabusID)
	reqData.IssueDate = strings.TrimSpace(reqData.IssueDate)
	reqData.Status = strings.TrimSpace(reqData.Status)

	errors := validators.Struct(reqData, certificateMessages)
	if errors == nil {
		errors = make(map[string]string)
	}

	if requireStatus && reqData.Status == "" {
		errors["status"] = certificateMessages["status"]
	}

	if id, ok := validators.ParamID(reqData.SyllabusID); ok {
		reqData.SyllabusRef = id
	} else if _, exists := errors["syllabus_id"]; !exists {
		errors["syllabus_id"] = certificateMessages["syllabus_id"]
	}

	reqData.Issued = time.Now()
	if reqData.IssueDate != "" {
		if issued, err := time.Parse("2006-01-02", reqData.IssueDate); err == nil {
			reqData.Issued = issued
		}
	}

	if file, err := c.FormFile("certificate_image"); err == nil {
		reqData.File = file
	} else if requireFile {
		errors["certificate_image"] = "Please upload a certificate image."
	}

	if len(errors) == 0 {
		errors = nil
	}
	return reqData, errors, nil
}

// CreateCertificate validates the multipart issuance form; the certificate file is required.
func CreateCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData, errors, err := parseCertificate(c, true, false)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCertificate", reqData)
		return c.Next()
	}
}

// UpdateCertificate validates the edit form; status is required, the file is optional.
func UpdateCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := validators.ParamID(c.Params("id")); !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Certificate ID!", nil)
		}

		reqData, errors, err := parseCertificate(c, false, true)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCertificate", reqData)
		return c.Next()
	}
}

func CertificateID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validators.ParamID(c.Params("id"))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Certificate ID!", nil)
		}
		c.Locals("certificateId", id)
		return c.Next()
	}
}

func ListCertificates() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ListRequest)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		reqData.Search = strings.TrimSpace(reqData.Search)
		reqData.Status = strings.TrimSpace(reqData.Status)
		if reqData.Page == 0 {
			reqData.Page = 1
		}

		if errors := validators.Struct(reqData, map[string]string{
			"page":   "Page must be greater than 0!",
			"status": "Status must be active or revoked!",
		}); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCertificateList", reqData)
		return c.Next()
	}
}

// BulkAction reads the selected ids and action from a form (certificates or
// certificates[]) or a JSON body and stores the parsed bulk.Selection.
func BulkAction() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawIDs, action, err := bulkInput(c)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		selection, err := bulk.ParseSelection(rawIDs, action)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, bulk.Message(err), nil)
		}

		c.Locals("validatedBulk", &selection)
		return c.Next()
	}
}

func bulkInput(c *fiber.Ctx) ([]string, string, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		body := new(struct {
			Certificates []json.Number `json:"certificates"`
			Action       string        `json:"action"`
		})
		if err := c.BodyParser(body); err != nil {
			return nil, "", err
		}
		ids := make([]string, 0, len(body.Certificates))
		for _, n := range body.Certificates {
			ids = append(ids, n.String())
		}
		return ids, body.Action, nil
	}

	var ids []string
	keys := []string{"certificates", "certificates[]"}
	if form, err := c.MultipartForm(); err == nil {
		for _, key := range keys {
			ids = append(ids, form.Value[key]...)
		}
	} else {
		args := c.Request().PostArgs()
		for _, key := range keys {
			for _, v := range args.PeekMulti(key) {
				ids = append(ids, string(v))
			}
		}
	}
	return ids, c.FormValue("action"), nil
}

// Verify validates the public search query.
func Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VerifyRequest)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		reqData.Name = strings.TrimSpace(reqData.Name)
		reqData.Email = strings.TrimSpace(reqData.Email)

		if errors := validators.Struct(reqData, map[string]string{
			"name":  "Please enter your full name.",
			"email": "Please enter your email address.",
		}); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedVerify", reqData)
		return c.Next()
	}
}
