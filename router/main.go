package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/studyaid/lecture-jobs/config"
	"github.com/studyaid/lecture-jobs/database"
	"github.com/studyaid/lecture-jobs/handlers"
	job_handlers "github.com/studyaid/lecture-jobs/handlers/job"
	lecture_handlers "github.com/studyaid/lecture-jobs/handlers/lecture"
	"github.com/studyaid/lecture-jobs/services"
	"github.com/studyaid/lecture-jobs/services/storage"
	"github.com/studyaid/lecture-jobs/utils"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load configuration")
	}

	// Object storage is optional; ingestion reports the missing
	// configuration per request instead of blocking startup
	var spacesClient *storage.SpacesClient
	if getEnv.SPACES_ACCESS_KEY != "" {
		spacesClient, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: getEnv.SPACES_ACCESS_KEY,
			SecretKey: getEnv.SPACES_SECRET_KEY,
			Bucket:    getEnv.SPACES_BUCKET,
			Region:    getEnv.SPACES_REGION,
			Endpoint:  getEnv.SPACES_ENDPOINT,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize object storage: %v. Lecture ingestion will be disabled.", err)
		}
	}

	ingestService := services.NewIngestService(db, spacesClient)
	lectureHandler := lecture_handlers.NewLectureHandler(db, ingestService)
	jobHandler := job_handlers.NewJobHandler(db)

	// Health endpoints (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))
	app.Get("/ready", utils.MakeHTTPHandleFunc(handlers.HandleCheckReadiness, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Lecture routes
	lectures := api.Group("/lectures")
	lectures.Get("/:id", lectureHandler.GetLecture)
	lectures.Post("/:id/ingest", lectureHandler.IngestLecture)

	// Job queue routes
	jobs := api.Group("/jobs")
	jobs.Post("/summarize-lecture", jobHandler.EnqueueSummarizeLecture)
	jobs.Post("/generate-quiz", jobHandler.EnqueueGenerateQuiz)
	jobs.Post("/generate-exam", jobHandler.EnqueueGenerateExam)
	jobs.Post("/grade-quiz-essay", jobHandler.EnqueueGradeQuizEssay)
	jobs.Post("/grade-exam-essay", jobHandler.EnqueueGradeExamEssay)
	jobs.Post("/course-weakness-analysis", jobHandler.EnqueueWeaknessAnalysis)
	jobs.Get("/", jobHandler.ListJobs)
	jobs.Get("/:id", jobHandler.GetJob)
}
