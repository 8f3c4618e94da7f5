package lecture

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services"
	"github.com/studyaid/lecture-jobs/utils/response"
	"gorm.io/gorm"
)

// LectureHandler serves lecture ingestion and status reads
type LectureHandler struct {
	db     *gorm.DB
	ingest *services.IngestService
}

// NewLectureHandler creates a new lecture handler
func NewLectureHandler(db *gorm.DB, ingest *services.IngestService) *LectureHandler {
	return &LectureHandler{
		db:     db,
		ingest: ingest,
	}
}

// IngestLecture handles POST /api/v1/lectures/:id/ingest
func (h *LectureHandler) IngestLecture(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return response.BadRequest(c, "Invalid lecture ID")
	}

	doc, err := h.ingest.IngestLecture(c.Context(), uint(id))
	if err != nil {
		return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
			"Failed to ingest lecture", "INGEST_FAILED", err.Error())
	}

	return response.SuccessWithMessage(c, "Lecture parsed", fiber.Map{
		"lecture_id":  id,
		"total_pages": doc.TotalPages,
	})
}

// GetLecture handles GET /api/v1/lectures/:id
func (h *LectureHandler) GetLecture(c *fiber.Ctx) error {
	id := c.Params("id")

	var lecture model.Lecture
	if err := h.db.First(&lecture, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Lecture not found")
		}
		return response.InternalServerError(c, "Failed to fetch lecture")
	}

	return response.Success(c, lecture)
}
