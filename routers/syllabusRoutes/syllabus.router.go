package syllabusRoutes

import (
	syllabusControllers "certhub/controllers/syllabus"
	syllabusValidators "certhub/validators/syllabus"

	"github.com/gofiber/fiber/v2"
)

func SetupSyllabusRoutes(adminGroup fiber.Router) {
	syllabusGroup := adminGroup.Group("/syllabi")

	syllabusGroup.Post("/", syllabusValidators.CreateSyllabus(), syllabusControllers.CreateSyllabus)
	syllabusGroup.Get("/", syllabusValidators.ListSyllabi(), syllabusControllers.ListSyllabi)
	syllabusGroup.Get("/:id", syllabusValidators.SyllabusID(), syllabusControllers.GetSyllabus)
	syllabusGroup.Put("/:id", syllabusValidators.UpdateSyllabus(), syllabusControllers.UpdateSyllabus)
	syllabusGroup.Delete("/:id", syllabusValidators.SyllabusID(), syllabusControllers.DeleteSyllabus)
}
