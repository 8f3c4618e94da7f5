//go:build ignore
// +build ignore

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/studyaid/lecture-jobs/config"
	"github.com/studyaid/lecture-jobs/database"
	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services"
	"github.com/studyaid/lecture-jobs/services/llm"
	"gorm.io/gorm"
)

// This script runs a single generation job synchronously, bypassing the
// queue. Useful for replaying failed jobs or testing prompt changes.
// Usage:
//   go run scripts/run_job.go -type summarize_lecture -payload '{"lecture_id":1,"course_id":1,"user_id":"u1"}'
//   go run scripts/run_job.go -status 42

func main() {
	jobType := flag.String("type", "", "job type to run")
	payload := flag.String("payload", "", "job payload as JSON")
	statusID := flag.Uint("status", 0, "print the status of a queued job and exit")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if *statusID != 0 {
		printJobStatus(*statusID)
		return
	}

	if *jobType == "" || *payload == "" {
		log.Fatal("-type and -payload are required")
	}

	getEnv, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	client := llm.NewClient(llm.Config{
		APIKey:      getEnv.INFERENCE_API_KEY,
		Model:       getEnv.INFERENCE_MODEL,
		Timeout:     getEnv.INFERENCE_TIMEOUT,
		RateLimiter: llm.NewRateLimiter(llm.DefaultRateLimiterConfig()),
	})
	prompts := llm.NewPromptStore(getEnv.PROMPT_DIR)

	chunker, err := services.NewPageChunker(getEnv.PAGES_PER_CHUNK)
	if err != nil {
		log.Fatalf("Invalid chunk size: %v", err)
	}
	orchCfg := services.OrchestratorConfig{MaxConcurrent: getEnv.MAX_CONCURRENT_CHUNKS}
	summaryOrchCfg := orchCfg
	summaryOrchCfg.StaggerDelay = 500 * time.Millisecond

	language := getEnv.OUTPUT_LANGUAGE
	version := getEnv.PROMPT_VERSION

	dispatcher := services.NewDispatcher(db, nil, services.DispatcherConfig{},
		services.NewSummaryService(db, client, prompts, chunker, summaryOrchCfg, language, version),
		services.NewQuizService(db, client, prompts, chunker, orchCfg, language, version),
		services.NewExamService(db, client, prompts, chunker, orchCfg, language, version),
		services.NewGradingService(db, client, prompts, version),
		services.NewWeaknessService(db, client, prompts, version),
	)

	log.Printf("Running %s job...", *jobType)
	err = dispatcher.RunJob(context.Background(), model.GenerationJobType(*jobType), []byte(*payload))
	if err != nil {
		log.Fatalf("Job failed: %v", err)
	}
	log.Println("Job completed successfully")
}

func printJobStatus(jobID uint) {
	store, err := database.Start()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	status, lastError, err := store.JobStatus(jobID)
	if err != nil {
		log.Fatalf("Failed to read job %d: %v", jobID, err)
	}

	log.Printf("Job %d: %s", jobID, status)
	if lastError != "" {
		log.Printf("Last error: %s", lastError)
	}
}
