package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/studyaid/lecture-jobs/api"
	"github.com/studyaid/lecture-jobs/config"
	"github.com/studyaid/lecture-jobs/database"
	"github.com/studyaid/lecture-jobs/router"
	"github.com/studyaid/lecture-jobs/services"
	"github.com/studyaid/lecture-jobs/services/cron"
	"github.com/studyaid/lecture-jobs/services/llm"
	"github.com/studyaid/lecture-jobs/utils/cache"
	"gorm.io/gorm"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		store.Close()
		return fmt.Errorf("failed to get GORM DB instance")
	}

	// Initialize Redis cache for dispatcher claim marks
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Dispatcher claim marks will be disabled.", err)
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(db)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: Failed to start cron jobs: %v", err)
			// Don't fail the app, just log the warning
		}
	}

	// Inference gateway client and prompt templates
	client := llm.NewClient(llm.Config{
		APIKey:      getEnv.INFERENCE_API_KEY,
		Model:       getEnv.INFERENCE_MODEL,
		Timeout:     getEnv.INFERENCE_TIMEOUT,
		RateLimiter: llm.NewRateLimiter(llm.DefaultRateLimiterConfig()),
	})
	prompts := llm.NewPromptStore(getEnv.PROMPT_DIR)

	chunker, err := services.NewPageChunker(getEnv.PAGES_PER_CHUNK)
	if err != nil {
		return err
	}
	orchCfg := services.OrchestratorConfig{
		MaxConcurrent: getEnv.MAX_CONCURRENT_CHUNKS,
	}
	// Summarization staggers its chunk fan-out; the question generators
	// fan out immediately.
	summaryOrchCfg := orchCfg
	summaryOrchCfg.StaggerDelay = 500 * time.Millisecond

	language := getEnv.OUTPUT_LANGUAGE
	version := getEnv.PROMPT_VERSION

	summaryService := services.NewSummaryService(db, client, prompts, chunker, summaryOrchCfg, language, version)
	quizService := services.NewQuizService(db, client, prompts, chunker, orchCfg, language, version)
	examService := services.NewExamService(db, client, prompts, chunker, orchCfg, language, version)
	gradingService := services.NewGradingService(db, client, prompts, version)
	weaknessService := services.NewWeaknessService(db, client, prompts, version)

	// Start the job dispatcher (only if enabled via environment variable)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	if os.Getenv("DISPATCHER_ENABLED") != "false" { // Default to enabled
		dispatcher := services.NewDispatcher(db, redisCache, services.DispatcherConfig{
			PollInterval: dispatcherPollInterval(),
		}, summaryService, quizService, examService, gradingService, weaknessService)
		go dispatcher.Run(dispatcherCtx)
	}

	// Defer stopping the dispatcher, cron jobs and closing the DB
	defer func() {
		stopDispatcher()
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Setup Routes
	router.SetupRoutes(app, store)

	// Get the PORT & Start the Server
	return server.Run()
}

func dispatcherPollInterval() time.Duration {
	if secs := os.Getenv("DISPATCHER_POLL_SECONDS"); secs != "" {
		if d, err := time.ParseDuration(secs + "s"); err == nil && d > 0 {
			return d
		}
	}
	return 5 * time.Second
}
