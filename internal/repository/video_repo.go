package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidforge-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const videoColumns = `id, channel_id, title, description, script, status, generation_progress,
	error_message, youtube_video_id, video_path, thumbnail_path, duration, file_size,
	tags, category, target_duration, created_at, updated_at, published_at`

func (r *VideoRepo) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	if v.Status == "" {
		v.Status = models.VideoDraft
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.TargetDuration == 0 {
		v.TargetDuration = 300
	}

	query := `INSERT INTO videos (id, channel_id, title, description, script, status,
			tags, category, target_duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		v.ID, v.ChannelID, v.Title, v.Description, v.Script, v.Status,
		v.Tags, v.Category, v.TargetDuration,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	v, err := scanVideo(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return v, nil
}

func (r *VideoRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, limit, offset int) ([]*models.Video, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE channel_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		channelID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectVideos(rows)
}

// BeginGeneration atomically moves the video into generating with
// progress reset to 0. It is a compare-and-swap on status: only one of
// two concurrent callers observes true, closing the read-then-write
// race around job starts.
func (r *VideoRepo) BeginGeneration(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET status = $1, generation_progress = 0, error_message = NULL, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`,
		models.VideoGenerating, id,
		[]string{string(models.VideoDraft), string(models.VideoFailed)})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BeginUpload atomically moves a generated video into uploading.
func (r *VideoRepo) BeginUpload(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET status = $1, error_message = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.VideoUploading, id, models.VideoGenerated)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateProgress persists an intermediate generation percentage. The
// status guard keeps late renderer callbacks from touching a video
// that already moved on.
func (r *VideoRepo) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET generation_progress = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		progress, id, models.VideoGenerating)
	return err
}

func (r *VideoRepo) SaveScript(ctx context.Context, id uuid.UUID, script string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET script = $1, updated_at = NOW() WHERE id = $2", script, id)
	return err
}

// MarkGenerated records the rendering artifacts and completes generation.
func (r *VideoRepo) MarkGenerated(ctx context.Context, id uuid.UUID, videoPath, thumbnailPath string, duration int, fileSize int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET status = $1, generation_progress = 100, video_path = $2,
			thumbnail_path = $3, duration = $4, file_size = $5, updated_at = NOW()
		WHERE id = $6`,
		models.VideoGenerated, videoPath, thumbnailPath, duration, fileSize, id)
	return err
}

// MarkUploaded records the external identifier and publish time.
func (r *VideoRepo) MarkUploaded(ctx context.Context, id uuid.UUID, youtubeVideoID string, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET status = $1, youtube_video_id = $2, published_at = $3, updated_at = NOW()
		WHERE id = $4`,
		models.VideoUploaded, youtubeVideoID, publishedAt, id)
	return err
}

// MarkFailed persists the error text verbatim for operator diagnosis.
func (r *VideoRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		models.VideoFailed, errMsg, id)
	return err
}

// OldestGenerated returns the channel's oldest video awaiting upload,
// or ErrNotFound when nothing is ready.
func (r *VideoRepo) OldestGenerated(ctx context.Context, channelID uuid.UUID) (*models.Video, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos
		WHERE channel_id = $1 AND status = $2
		ORDER BY created_at ASC LIMIT 1`,
		channelID, models.VideoGenerated)
	v, err := scanVideo(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return v, nil
}

// ListUploaded returns uploaded videos that carry an external
// identifier, the analytics sync fan-out set.
func (r *VideoRepo) ListUploaded(ctx context.Context) ([]*models.Video, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos
		WHERE status = $1 AND youtube_video_id IS NOT NULL
		ORDER BY published_at ASC`,
		models.VideoUploaded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectVideos(rows)
}

func (r *VideoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(
		&v.ID, &v.ChannelID, &v.Title, &v.Description, &v.Script, &v.Status,
		&v.GenerationProgress, &v.ErrorMessage, &v.YouTubeVideoID, &v.VideoPath,
		&v.ThumbnailPath, &v.Duration, &v.FileSize, &v.Tags, &v.Category,
		&v.TargetDuration, &v.CreatedAt, &v.UpdatedAt, &v.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func collectVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
