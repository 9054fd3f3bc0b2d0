package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoAnalytics is the reconciled performance record for one published
// video. Created lazily on first sync and upserted afterwards.
type VideoAnalytics struct {
	ID                  uuid.UUID `json:"id"`
	VideoID             uuid.UUID `json:"video_id"`
	Views               int64     `json:"views"`
	Likes               int64     `json:"likes"`
	Dislikes            int64     `json:"dislikes"`
	Comments            int64     `json:"comments"`
	Shares              int64     `json:"shares"`
	WatchTime           int64     `json:"watch_time"` // total seconds
	AverageViewDuration float64   `json:"average_view_duration"`
	ClickThroughRate    float64   `json:"click_through_rate"`
	EngagementRate      float64   `json:"engagement_rate"`
	Revenue             float64   `json:"revenue"`
	LastUpdated         time.Time `json:"last_updated"`
}

// EngagementRate computes (likes + comments) / views, guarding the
// zero-view case.
func EngagementRate(likes, comments, views int64) float64 {
	if views == 0 {
		return 0
	}
	return float64(likes+comments) / float64(views)
}
