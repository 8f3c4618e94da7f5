package services

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
)

// LogCourseActivity records an activity entry for a course. Logging is
// non-critical: failures are logged and swallowed so they never fail the job
// that triggered them.
func LogCourseActivity(db *gorm.DB, courseID uint, userID string, activityType, contentsType string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[ACTIVITY] Failed to serialize activity details for course %d: %v", courseID, err)
		return
	}

	entry := model.CourseActivityLog{
		CourseID:     courseID,
		UserID:       userID,
		ActivityType: activityType,
		ContentsType: contentsType,
		Details:      detailsJSON,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[ACTIVITY] Failed to log activity for course %d: %v", courseID, err)
	}
}
