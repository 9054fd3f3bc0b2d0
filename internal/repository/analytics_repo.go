package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidforge-backend/internal/models"
)

type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepo(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// Upsert writes the latest metrics snapshot for a video. Repeated
// syncs overwrite in place, so running the sync twice is harmless.
func (r *AnalyticsRepo) Upsert(ctx context.Context, a *models.VideoAnalytics) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `INSERT INTO video_analytics (id, video_id, views, likes, dislikes, comments,
			shares, watch_time, average_view_duration, click_through_rate,
			engagement_rate, revenue, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			dislikes = EXCLUDED.dislikes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			watch_time = EXCLUDED.watch_time,
			average_view_duration = EXCLUDED.average_view_duration,
			click_through_rate = EXCLUDED.click_through_rate,
			engagement_rate = EXCLUDED.engagement_rate,
			revenue = EXCLUDED.revenue,
			last_updated = NOW()
		RETURNING id, last_updated`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.VideoID, a.Views, a.Likes, a.Dislikes, a.Comments,
		a.Shares, a.WatchTime, a.AverageViewDuration, a.ClickThroughRate,
		a.EngagementRate, a.Revenue,
	).Scan(&a.ID, &a.LastUpdated)
}

func (r *AnalyticsRepo) GetByVideoID(ctx context.Context, videoID uuid.UUID) (*models.VideoAnalytics, error) {
	a := &models.VideoAnalytics{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, video_id, views, likes, dislikes, comments, shares, watch_time,
			average_view_duration, click_through_rate, engagement_rate, revenue, last_updated
		FROM video_analytics WHERE video_id = $1`, videoID,
	).Scan(
		&a.ID, &a.VideoID, &a.Views, &a.Likes, &a.Dislikes, &a.Comments,
		&a.Shares, &a.WatchTime, &a.AverageViewDuration, &a.ClickThroughRate,
		&a.EngagementRate, &a.Revenue, &a.LastUpdated,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return a, nil
}
