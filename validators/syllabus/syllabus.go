package syllabusValidator

import (
	"certhub/middleware"
	"certhub/validators"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type SyllabusRequest struct {
	SyllabusName string `form:"syllabus_name" validate:"required,max=255"`
	Description  string `form:"description" validate:"max=5000"`

	File *multipart.FileHeader `form:"-" validate:"-"`
}

type ListRequest struct {
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Search string `query:"search" validate:"max=255"`
}

func parseSyllabus(c *fiber.Ctx, requireFile bool) error {
	reqData := new(SyllabusRequest)
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	reqData.SyllabusName = strings.TrimSpace(reqData.SyllabusName)
	reqData.Description = strings.TrimSpace(reqData.Description)

	errors := validators.Struct(reqData, map[string]string{
		"syllabus_name": "Syllabus name is required.",
		"description":   "Description is too long.",
	})
	if errors == nil {
		errors = make(map[string]string)
	}

	if file, err := c.FormFile("syllabus_pdf"); err == nil {
		reqData.File = file
	} else if requireFile {
		errors["syllabus_pdf"] = "Please upload a PDF file."
	}

	if len(errors) > 0 {
		return middleware.ValidationErrorResponse(c, errors)
	}

	c.Locals("validatedSyllabus", reqData)
	return c.Next()
}

func CreateSyllabus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return parseSyllabus(c, true)
	}
}

// UpdateSyllabus validates the edit form; a new PDF is optional.
func UpdateSyllabus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := validators.ParamID(c.Params("id")); !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Syllabus ID!", nil)
		}
		return parseSyllabus(c, false)
	}
}

func SyllabusID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validators.ParamID(c.Params("id"))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Syllabus ID!", nil)
		}
		c.Locals("syllabusId", id)
		return c.Next()
	}
}

func ListSyllabi() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ListRequest)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		reqData.Search = strings.TrimSpace(reqData.Search)
		if reqData.Page == 0 {
			reqData.Page = 1
		}

		if errors := validators.Struct(reqData, map[string]string{
			"page": "Page must be greater than 0!",
		}); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedSyllabusList", reqData)
		return c.Next()
	}
}
