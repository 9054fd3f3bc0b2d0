package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"vidforge-backend/internal/ai"
	"vidforge-backend/internal/models"
)

// PublishRequest carries the artifact and metadata for one upload.
type PublishRequest struct {
	VideoPath         string
	ThumbnailPath     string
	Title             string
	Description       string
	Tags              []string
	CategoryID        string
	Privacy           string
	NotifySubscribers bool
}

// PublishResult identifies the published video on the platform.
type PublishResult struct {
	ExternalID string
	URL        string
}

// VideoMetrics is a point-in-time metrics snapshot for one published video.
type VideoMetrics struct {
	Views               int64
	Likes               int64
	Dislikes            int64
	Comments            int64
	Shares              int64
	WatchTime           int64
	AverageViewDuration float64
	ClickThroughRate    float64
	EngagementRate      float64
	Revenue             float64
}

// PublishError marks a failure in the publishing step itself.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Publisher uploads finished videos and fetches their metrics.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
	FetchMetrics(ctx context.Context, externalID string) (*VideoMetrics, error)
}

// Approximate YouTube Data API unit costs.
const (
	quotaCostUpload       = 1600
	quotaCostThumbnailSet = 50
	quotaCostVideosList   = 1
	dailyQuotaUnits       = 10000
)

// quotaTracker keeps a running estimate of remaining daily API units
// so the service can refuse work before the API does.
type quotaTracker struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

func newQuotaTracker() *quotaTracker {
	return &quotaTracker{remaining: dailyQuotaUnits, resetAt: nextQuotaReset(time.Now())}
}

// reserve checks the estimated budget and deducts cost if it fits.
func (q *quotaTracker) reserve(cost int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	if now.After(q.resetAt) {
		q.remaining = dailyQuotaUnits
		q.resetAt = nextQuotaReset(now)
		log.Println("youtube: quota estimate reset for new day")
	}

	if q.remaining < cost {
		return &ai.RateLimitError{Provider: "youtube", Err: fmt.Errorf("estimated daily quota exhausted (%d units remaining, need %d)", q.remaining, cost)}
	}
	q.remaining -= cost
	return nil
}

func (q *quotaTracker) estimate() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining
}

// YouTube quota resets at midnight Pacific.
func nextQuotaReset(now time.Time) time.Time {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.Add(24 * time.Hour)
}

// YouTubePublisher uploads through the YouTube Data API v3 using a
// long-lived refresh token.
type YouTubePublisher struct {
	svc             *youtube.Service
	quota           *quotaTracker
	defaultCategory string
}

func NewYouTubePublisher(ctx context.Context, clientID, clientSecret, refreshToken, defaultCategory string) (*YouTubePublisher, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("youtube client id, secret and refresh token must all be set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, conf.TokenSource(ctx, token))))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	if defaultCategory == "" {
		defaultCategory = "22" // People & Blogs
	}

	return &YouTubePublisher{svc: svc, quota: newQuotaTracker(), defaultCategory: defaultCategory}, nil
}

func (p *YouTubePublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := p.quota.reserve(quotaCostUpload); err != nil {
		return nil, err
	}

	f, err := os.Open(req.VideoPath)
	if err != nil {
		return nil, &PublishError{Op: "open artifact", Err: err}
	}
	defer f.Close()

	categoryID := req.CategoryID
	if categoryID == "" {
		categoryID = p.defaultCategory
	}
	privacy := req.Privacy
	if privacy == "" {
		privacy = "private"
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}

	call := p.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Context(ctx).
		NotifySubscribers(req.NotifySubscribers)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return nil, mapYouTubeError("upload", err)
	}

	if req.ThumbnailPath != "" {
		if err := p.setThumbnail(ctx, uploaded.Id, req.ThumbnailPath); err != nil {
			// The video itself is live, so log and continue.
			log.Printf("youtube: thumbnail set failed for %s: %v", uploaded.Id, err)
		}
	}

	return &PublishResult{
		ExternalID: uploaded.Id,
		URL:        fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id),
	}, nil
}

func (p *YouTubePublisher) setThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	if err := p.quota.reserve(quotaCostThumbnailSet); err != nil {
		return err
	}

	f, err := os.Open(thumbnailPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = p.svc.Thumbnails.Set(videoID).Context(ctx).Media(f).Do()
	return err
}

func (p *YouTubePublisher) FetchMetrics(ctx context.Context, externalID string) (*VideoMetrics, error) {
	if err := p.quota.reserve(quotaCostVideosList); err != nil {
		return nil, err
	}

	resp, err := p.svc.Videos.List([]string{"statistics", "contentDetails"}).Id(externalID).Context(ctx).Do()
	if err != nil {
		return nil, mapYouTubeError("stats", err)
	}
	if len(resp.Items) == 0 {
		return nil, &PublishError{Op: "stats", Err: fmt.Errorf("video %s not found on platform", externalID)}
	}

	stats := resp.Items[0].Statistics
	if stats == nil {
		return nil, &PublishError{Op: "stats", Err: fmt.Errorf("video %s has no statistics", externalID)}
	}

	views := int64(stats.ViewCount)
	likes := int64(stats.LikeCount)
	comments := int64(stats.CommentCount)

	return &VideoMetrics{
		Views:          views,
		Likes:          likes,
		Dislikes:       int64(stats.DislikeCount),
		Comments:       comments,
		EngagementRate: models.EngagementRate(likes, comments, views),
	}, nil
}

// EstimatedQuota reports the remaining daily unit estimate.
func (p *YouTubePublisher) EstimatedQuota() int {
	return p.quota.estimate()
}

func mapYouTubeError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 403 && hasReason(apiErr, "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded"):
			return &ai.RateLimitError{Provider: "youtube", Err: err}
		case apiErr.Code == 401 || apiErr.Code == 403:
			return &ai.AuthError{Provider: "youtube", Err: err}
		}
	}
	return &PublishError{Op: op, Err: err}
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}
