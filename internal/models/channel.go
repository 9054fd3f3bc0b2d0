package models

import (
	"time"

	"github.com/google/uuid"
)

type ChannelStatus string

const (
	ChannelActive    ChannelStatus = "active"
	ChannelInactive  ChannelStatus = "inactive"
	ChannelSuspended ChannelStatus = "suspended"
)

// Channel is a managed YouTube channel. Only active channels are eligible
// for scheduled work.
type Channel struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	Description      *string       `json:"description"`
	Niche            string        `json:"niche"`
	YouTubeChannelID *string       `json:"youtube_channel_id"`
	Status           ChannelStatus `json:"status"`
	UploadSchedule   *string       `json:"upload_schedule"`
	AutoGenerate     bool          `json:"auto_generate"`
	AutoUpload       bool          `json:"auto_upload"`
	DefaultDuration  int           `json:"default_duration"` // seconds
	OwnerID          uuid.UUID     `json:"owner_id"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (c *Channel) Schedulable() bool {
	return c.Status == ChannelActive
}

type CreateChannelRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	Niche           string  `json:"niche"`
	AutoGenerate    bool    `json:"auto_generate"`
	AutoUpload      bool    `json:"auto_upload"`
	DefaultDuration int     `json:"default_duration"`
}
