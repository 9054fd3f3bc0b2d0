package queue

import (
	"testing"

	"vidforge-backend/internal/models"
)

func TestQueueFor(t *testing.T) {
	tests := []struct {
		jobType string
		want    string
	}{
		{models.JobVideoGeneration, QueueVideoGeneration},
		{models.JobVideoUpload, QueueVideoUpload},
		{models.JobAnalyticsSync, QueueAnalyticsSync},
	}

	for _, tt := range tests {
		got, err := QueueFor(tt.jobType)
		if err != nil {
			t.Fatalf("QueueFor(%s) failed: %v", tt.jobType, err)
		}
		if got != tt.want {
			t.Errorf("QueueFor(%s) = %s, want %s", tt.jobType, got, tt.want)
		}
	}
}

func TestQueueFor_UnknownType(t *testing.T) {
	if _, err := QueueFor("thumbnail-regeneration"); err == nil {
		t.Fatal("expected an error for an unknown job type")
	}
}
