package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services/storage"
	"gorm.io/gorm"
)

// IngestService downloads lecture PDFs from object storage and extracts
// their page-aligned text so the generation jobs can run against it.
type IngestService struct {
	db        *gorm.DB
	spaces    *storage.SpacesClient
	extractor *PDFExtractor
}

func NewIngestService(db *gorm.DB, spaces *storage.SpacesClient) *IngestService {
	return &IngestService{
		db:        db,
		spaces:    spaces,
		extractor: NewPDFExtractor(),
	}
}

// IngestLecture fetches the lecture's source PDF, extracts its pages and
// persists the parsed document. Re-running replaces the stored extraction.
func (s *IngestService) IngestLecture(ctx context.Context, lectureID uint) (*ParsedDocument, error) {
	if s.spaces == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	var lecture model.Lecture
	if err := s.db.WithContext(ctx).First(&lecture, lectureID).Error; err != nil {
		return nil, fmt.Errorf("failed to load lecture %d: %w", lectureID, err)
	}
	if lecture.MaterialPath == "" {
		return nil, fmt.Errorf("lecture %d has no source material", lectureID)
	}

	exists, err := s.spaces.FileExists(ctx, lecture.MaterialPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check source material: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("source material %q not found in storage", lecture.MaterialPath)
	}

	content, err := s.spaces.DownloadFile(ctx, lecture.MaterialPath)
	if err != nil {
		return nil, fmt.Errorf("failed to download source material: %w", err)
	}

	doc, err := s.extractor.ExtractDocument(content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract lecture %d: %w", lectureID, err)
	}

	parsedJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&model.Lecture{}).
		Where("id = ?", lectureID).
		Updates(map[string]interface{}{
			"parsed_text":    parsedJSON,
			"summary_status": model.SummaryStatusNotStarted,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to persist parsed text: %w", err)
	}

	log.Printf("[INGEST] Lecture %d parsed, %d pages", lectureID, doc.TotalPages)
	return doc, nil
}
