package handler

import (
	"strings"
	"testing"
	"time"

	"dentalcrm_backend/platform/validator"
)

func TestCreateNotificationTitleFitsColumn(t *testing.T) {
	val := validator.New()

	req := CreateNotificationRequest{
		LeadID:       1,
		Type:         "custom",
		Title:        strings.Repeat("a", 255),
		ScheduledFor: time.Now(),
	}
	if err := val.Struct(req); err != nil {
		t.Errorf("255-character title must validate: %v", err)
	}

	req.Title = strings.Repeat("a", 256)
	if err := val.Struct(req); err == nil {
		t.Error("titles longer than the column must be rejected")
	}
}
