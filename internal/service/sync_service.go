package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artwall/internal/db"
)

var (
	ErrSyncDisabled = errors.New("telegram sync is not configured")
	ErrSyncBusy     = errors.New("a sync cycle is already running")
)

// communityArtistName credits channel posts that carry no artist of their own.
const communityArtistName = "Community Artist"

// ContentItem is the canonical form of one ingested channel image,
// independent of the payload shape it arrived in.
type ContentItem struct {
	ExternalID string
	FileID     string
	Caption    string
	PostedAt   time.Time
	Width      int
	Height     int
}

// SyncResult summarizes one ingestion cycle.
type SyncResult struct {
	Fetched int // canonical items seen in the batch
	Added   int
	Skipped int // duplicates, silently ignored
	Failed  int // items whose media could not be resolved
}

// SyncStatus is a read-only snapshot of the adapter state.
type SyncStatus struct {
	Channel       string
	BotConfigured bool
	LastOffset    int64
	LastSyncAt    time.Time
	LastError     string
}

type channelClient interface {
	getUpdates(ctx context.Context, offset int64) ([]telegramUpdate, error)
	resolveFileURL(ctx context.Context, fileID string) (string, error)
}

// SyncService pulls posts from the Telegram channel and feeds them into the
// gallery through the constrained-insert dedup path. Each instance owns its
// own update offset; the offset only moves past updates whose items were all
// either recorded, skipped as duplicates, or skipped as unresolvable.
type SyncService struct {
	gallery *GalleryService
	client  channelClient
	logger  *slog.Logger
	channel string

	interval     time.Duration
	cycleTimeout time.Duration

	// cycleMu is a re-entrancy guard, not a queue: a tick that fires while a
	// cycle is still running is dropped.
	cycleMu sync.Mutex

	stateMu    sync.Mutex
	offset     int64
	lastSyncAt time.Time
	lastError  string

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// NewSyncService creates a SyncService. An empty bot token yields a disabled
// adapter: Status still works, Start and SyncNow report ErrSyncDisabled.
func NewSyncService(gallery *GalleryService, botToken, channel string, interval time.Duration, logger *slog.Logger) *SyncService {
	var client channelClient
	if strings.TrimSpace(botToken) != "" {
		client = newTelegramClient(botToken)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SyncService{
		gallery:      gallery,
		client:       client,
		logger:       logger,
		channel:      strings.TrimSpace(channel),
		interval:     interval,
		cycleTimeout: time.Minute,
	}
}

// SetChannelClient swaps the API client, used by tests.
func (s *SyncService) SetChannelClient(client channelClient) {
	s.client = client
}

// Enabled reports whether the adapter has channel credentials.
func (s *SyncService) Enabled() bool {
	return s.client != nil
}

// Start launches the periodic sync worker. It returns once the worker is
// running; cycles happen on the configured interval until Shutdown.
func (s *SyncService) Start(ctx context.Context) error {
	if !s.Enabled() {
		return ErrSyncDisabled
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("sync worker already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				result, err := s.SyncNow(s.ctx)
				switch {
				case errors.Is(err, ErrSyncBusy):
					s.logger.Warn("sync tick skipped, previous cycle still running")
				case err != nil:
					s.logger.Error("sync cycle failed", "error", err)
				case result.Added > 0 || result.Failed > 0:
					s.logger.Info("sync cycle finished",
						"fetched", result.Fetched, "added", result.Added,
						"skipped", result.Skipped, "failed", result.Failed)
				}
			}
		}
	}()
	return nil
}

// Shutdown stops the worker and waits for an in-flight cycle to finish.
func (s *SyncService) Shutdown(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncNow runs one ingestion cycle. Overlapping calls return ErrSyncBusy.
func (s *SyncService) SyncNow(ctx context.Context) (SyncResult, error) {
	if !s.Enabled() {
		return SyncResult{}, ErrSyncDisabled
	}
	if !s.cycleMu.TryLock() {
		return SyncResult{}, ErrSyncBusy
	}
	defer s.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	result, err := s.runCycle(ctx)

	s.stateMu.Lock()
	s.lastSyncAt = time.Now()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.stateMu.Unlock()

	return result, err
}

func (s *SyncService) runCycle(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	updates, err := s.client.getUpdates(ctx, s.currentOffset()+1)
	if err != nil {
		// Offset untouched: the same window is retried next cycle.
		return result, fmt.Errorf("fetch channel updates: %w", err)
	}

	captions := groupCaptions(updates)
	for _, update := range updates {
		items := normalizeUpdate(update, captions)
		result.Fetched += len(items)

		for _, item := range items {
			fileURL, err := s.client.resolveFileURL(ctx, item.FileID)
			if err != nil {
				// One unresolvable item does not abort the batch.
				result.Failed++
				s.logger.Warn("skipping channel item",
					"external_id", item.ExternalID, "error", err)
				continue
			}

			_, err = s.gallery.Add(GalleryItemInput{
				ExternalID:  item.ExternalID,
				ImageURL:    fileURL,
				ArtistName:  communityArtistName,
				Description: item.Caption,
				Origin:      db.OriginExternal,
				DisplayedAt: item.PostedAt,
			})
			if errors.Is(err, ErrDuplicateItem) {
				result.Skipped++
				s.logger.Debug("channel item already recorded", "external_id", item.ExternalID)
				continue
			}
			if err != nil {
				// Persistence trouble: stop before advancing past this update
				// so it is retried next cycle.
				return result, fmt.Errorf("record channel item %s: %w", item.ExternalID, err)
			}
			result.Added++
		}

		s.setOffset(update.UpdateID)
	}

	return result, nil
}

// Status reports the adapter configuration and last cycle outcome.
func (s *SyncService) Status() SyncStatus {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return SyncStatus{
		Channel:       s.channel,
		BotConfigured: s.Enabled(),
		LastOffset:    s.offset,
		LastSyncAt:    s.lastSyncAt,
		LastError:     s.lastError,
	}
}

func (s *SyncService) currentOffset() int64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.offset
}

func (s *SyncService) setOffset(offset int64) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if offset > s.offset {
		s.offset = offset
	}
}

// groupCaptions collects the caption of each media group in the batch.
// Telegram puts the caption on a single message of the group; every image of
// the group shares it.
func groupCaptions(updates []telegramUpdate) map[string]string {
	captions := make(map[string]string)
	for _, update := range updates {
		post := update.post()
		if post == nil || post.MediaGroupID == "" {
			continue
		}
		if caption := strings.TrimSpace(post.Caption); caption != "" {
			if _, ok := captions[post.MediaGroupID]; !ok {
				captions[post.MediaGroupID] = caption
			}
		}
	}
	return captions
}

// normalizeUpdate flattens a channel payload (single photo, image document,
// or media-group member) into canonical content items. Non-image updates
// normalize to nothing.
func normalizeUpdate(update telegramUpdate, groupCaptions map[string]string) []ContentItem {
	post := update.post()
	if post == nil {
		return nil
	}

	caption := strings.TrimSpace(post.Caption)
	if caption == "" && post.MediaGroupID != "" {
		caption = groupCaptions[post.MediaGroupID]
	}
	externalID := strconv.FormatInt(post.MessageID, 10)
	postedAt := time.Unix(post.Date, 0)

	switch {
	case len(post.Photo) > 0:
		// Telegram lists photo sizes smallest first.
		largest := post.Photo[len(post.Photo)-1]
		return []ContentItem{{
			ExternalID: externalID,
			FileID:     largest.FileID,
			Caption:    caption,
			PostedAt:   postedAt,
			Width:      largest.Width,
			Height:     largest.Height,
		}}
	case post.Document != nil && strings.HasPrefix(post.Document.MimeType, "image/"):
		return []ContentItem{{
			ExternalID: externalID,
			FileID:     post.Document.FileID,
			Caption:    caption,
			PostedAt:   postedAt,
		}}
	default:
		return nil
	}
}
