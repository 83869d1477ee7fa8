package certificateRoutes

import (
	certificateControllers "certhub/controllers/certificate"
	certificateValidators "certhub/validators/certificate"

	"github.com/gofiber/fiber/v2"
)

// SetupCertificateRoutes mounts the certificate admin API on adminGroup.
func SetupCertificateRoutes(adminGroup fiber.Router) {
	adminGroup.Get("/dashboard/stats", certificateControllers.DashboardStats)

	certificateGroup := adminGroup.Group("/certificates")
	certificateGroup.Post("/", certificateValidators.CreateCertificate(), certificateControllers.CreateCertificate)
	certificateGroup.Get("/", certificateValidators.ListCertificates(), certificateControllers.ListCertificates)
	certificateGroup.Post("/bulk", certificateValidators.BulkAction(), certificateControllers.BulkAction)
	certificateGroup.Get("/:id", certificateValidators.CertificateID(), certificateControllers.GetCertificate)
	certificateGroup.Put("/:id", certificateValidators.UpdateCertificate(), certificateControllers.UpdateCertificate)
	certificateGroup.Delete("/:id", certificateValidators.CertificateID(), certificateControllers.DeleteCertificate)
}
