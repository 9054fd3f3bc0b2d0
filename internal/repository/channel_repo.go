package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidforge-backend/internal/models"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

const channelColumns = `id, name, description, niche, youtube_channel_id, status,
	upload_schedule, auto_generate, auto_upload, default_duration, owner_id, created_at, updated_at`

func (r *ChannelRepo) Create(ctx context.Context, c *models.Channel) error {
	c.ID = uuid.New()
	if c.Status == "" {
		c.Status = models.ChannelActive
	}
	if c.DefaultDuration == 0 {
		c.DefaultDuration = 300
	}

	query := `INSERT INTO channels (id, name, description, niche, youtube_channel_id, status,
			upload_schedule, auto_generate, auto_upload, default_duration, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		c.ID, c.Name, c.Description, c.Niche, c.YouTubeChannelID, c.Status,
		c.UploadSchedule, c.AutoGenerate, c.AutoUpload, c.DefaultDuration, c.OwnerID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	c, err := scanChannel(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return c, nil
}

func (r *ChannelRepo) List(ctx context.Context, limit, offset int) ([]*models.Channel, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

// ListAutoGenerate returns active channels with auto-generation enabled.
func (r *ChannelRepo) ListAutoGenerate(ctx context.Context) ([]*models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels
		WHERE status = $1 AND auto_generate ORDER BY created_at`,
		models.ChannelActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

// ListAutoUpload returns active channels with auto-upload enabled.
func (r *ChannelRepo) ListAutoUpload(ctx context.Context) ([]*models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels
		WHERE status = $1 AND auto_upload ORDER BY created_at`,
		models.ChannelActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

func (r *ChannelRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ChannelStatus) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE channels SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the channel; its videos cascade at the schema level.
func (r *ChannelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM channels WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	c := &models.Channel{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Niche, &c.YouTubeChannelID, &c.Status,
		&c.UploadSchedule, &c.AutoGenerate, &c.AutoUpload, &c.DefaultDuration,
		&c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func collectChannels(rows pgx.Rows) ([]*models.Channel, error) {
	var channels []*models.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}
