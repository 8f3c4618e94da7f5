package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/studyaid/lecture-jobs/config"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// DB access: *gorm.DB for GORMStore, *sql.DB for PostgreSQLStore
	GetDB() interface{}

	// Job queue visibility
	PendingJobCount() (int64, error)
}

// PostgreSQLStore is a plain database/sql store over lib/pq. The job runner
// CLI uses it for status reads without pulling in the ORM.
type PostgreSQLStore struct {
	db *sql.DB
}

func Start() (*PostgreSQLStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST, getEnv.DB_PORT, getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD, getEnv.DB_NAME, getEnv.DB_SSL_MODE,
	)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		fmt.Println("Unable to Start PostgresSQL Databse.")
		return nil, err
	}

	log.Println("Successfully connected to PostgresSQL Database.")

	return &PostgreSQLStore{db: db}, nil
}

// Init is a no-op for the raw store; migrations run through the GORM store
func (s *PostgreSQLStore) Init() error {
	return nil
}

func (s *PostgreSQLStore) Close() error {
	log.Println("Closing PostgreSQL connection...")
	return s.db.Close()
}

func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *PostgreSQLStore) GetDB() interface{} {
	return s.db
}

// PendingJobCount returns the number of generation jobs waiting to run
func (s *PostgreSQLStore) PendingJobCount() (int64, error) {
	var count int64
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM generation_jobs WHERE status = 'not_started' AND deleted_at IS NULL`,
	)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// JobStatus returns the status and last error of a single generation job
func (s *PostgreSQLStore) JobStatus(jobID uint) (status string, lastError string, err error) {
	row := s.db.QueryRow(
		`SELECT status, COALESCE(last_error, '') FROM generation_jobs WHERE id = $1 AND deleted_at IS NULL`,
		jobID,
	)
	if err := row.Scan(&status, &lastError); err != nil {
		return "", "", err
	}
	return status, lastError, nil
}
