package middleware

import (
	"certhub/utils"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// UploadErrorResponse answers a failed utils.LocalFileStore.Save for form field.
func UploadErrorResponse(c *fiber.Ctx, field string, err error, maxMB int, typeMessage string) error {
	switch {
	case errors.Is(err, utils.ErrFileType):
		return ValidationErrorResponse(c, map[string]string{field: typeMessage})
	case errors.Is(err, utils.ErrFileSize):
		return ValidationErrorResponse(c, map[string]string{field: fmt.Sprintf("File size must be less than %dMB.", maxMB)})
	default:
		log.Printf("[UPLOAD] saving %s failed: %v", field, err)
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to upload file.", nil)
	}
}
