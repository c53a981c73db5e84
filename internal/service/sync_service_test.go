package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubChannelClient struct {
	updates    []telegramUpdate
	updatesErr error
	resolveErr map[string]error
	calls      []int64
	block      chan struct{} // when set, getUpdates waits until closed
}

func (s *stubChannelClient) getUpdates(ctx context.Context, offset int64) ([]telegramUpdate, error) {
	s.calls = append(s.calls, offset)
	if s.block != nil {
		<-s.block
	}
	if s.updatesErr != nil {
		return nil, s.updatesErr
	}
	var pending []telegramUpdate
	for _, update := range s.updates {
		if update.UpdateID >= offset {
			pending = append(pending, update)
		}
	}
	return pending, nil
}

func (s *stubChannelClient) resolveFileURL(ctx context.Context, fileID string) (string, error) {
	if err, ok := s.resolveErr[fileID]; ok {
		return "", err
	}
	return "https://files.example.com/" + fileID, nil
}

func photoUpdate(updateID, messageID int64, fileID, caption string) telegramUpdate {
	return telegramUpdate{
		UpdateID: updateID,
		ChannelPost: &telegramMessage{
			MessageID: messageID,
			Date:      time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC).Unix(),
			Caption:   caption,
			Photo: []telegramPhoto{
				{FileID: fileID + "-small", Width: 90, Height: 60},
				{FileID: fileID, Width: 1280, Height: 853},
			},
		},
	}
}

func newTestSyncService(t *testing.T, client channelClient) (*SyncService, *GalleryService) {
	t.Helper()
	gallery := NewGalleryService(setupTestDB(t))
	svc := NewSyncService(gallery, "test-token", "@artchannel", time.Minute, nil)
	svc.SetChannelClient(client)
	return svc, gallery
}

func TestSyncIngestsChannelPhotos(t *testing.T) {
	client := &stubChannelClient{updates: []telegramUpdate{
		photoUpdate(100, 7, "file-7", "glow study"),
	}}
	svc, gallery := newTestSyncService(t, client)

	result, err := svc.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Added != 1 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	items, err := gallery.Feed()
	if err != nil {
		t.Fatalf("failed to read feed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].ExternalID == nil || *items[0].ExternalID != "7" {
		t.Fatalf("expected external id 7, got %v", items[0].ExternalID)
	}
	if items[0].ImageURL != "https://files.example.com/file-7" {
		t.Fatalf("unexpected image url %q", items[0].ImageURL)
	}
	if items[0].Description != "glow study" {
		t.Fatalf("unexpected description %q", items[0].Description)
	}
}

func TestSyncIsIdempotentAcrossCycles(t *testing.T) {
	client := &stubChannelClient{updates: []telegramUpdate{
		photoUpdate(100, 7, "file-7", ""),
	}}
	svc, gallery := newTestSyncService(t, client)

	if _, err := svc.SyncNow(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	// A second instance simulates a restart without a persisted offset: the
	// same updates are re-delivered and must be skipped, not duplicated.
	restarted, _ := newTestSyncService(t, client)
	restarted.gallery = svc.gallery
	result, err := restarted.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if result.Added != 0 || result.Skipped != 1 {
		t.Fatalf("expected duplicate skip, got %+v", result)
	}

	items, err := gallery.Feed()
	if err != nil {
		t.Fatalf("failed to read feed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one item after re-delivery, got %d", len(items))
	}
}

func TestSyncOffsetDiscipline(t *testing.T) {
	client := &stubChannelClient{updates: []telegramUpdate{
		photoUpdate(100, 7, "file-7", ""),
		photoUpdate(101, 8, "file-8", ""),
	}}
	svc, _ := newTestSyncService(t, client)

	if _, err := svc.SyncNow(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if got := svc.Status().LastOffset; got != 101 {
		t.Fatalf("expected offset 101, got %d", got)
	}

	// Transport failure: the offset must not move, so the window is retried.
	client.updatesErr = errors.New("connection reset")
	if _, err := svc.SyncNow(context.Background()); err == nil {
		t.Fatal("expected cycle error on transport failure")
	}
	if got := svc.Status().LastOffset; got != 101 {
		t.Fatalf("offset moved on failed cycle: %d", got)
	}
	if status := svc.Status(); status.LastError == "" {
		t.Fatal("expected last error to be recorded")
	}

	if len(client.calls) != 2 || client.calls[1] != 102 {
		t.Fatalf("expected the failed cycle to ask for offset 102, calls were %v", client.calls)
	}
}

func TestSyncSkipsUnresolvableItems(t *testing.T) {
	client := &stubChannelClient{
		updates: []telegramUpdate{
			photoUpdate(100, 7, "file-7", ""),
			photoUpdate(101, 8, "file-8", ""),
		},
		resolveErr: map[string]error{"file-7": errors.New("file expired")},
	}
	svc, gallery := newTestSyncService(t, client)

	result, err := svc.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if result.Failed != 1 || result.Added != 1 {
		t.Fatalf("expected one failure and one add, got %+v", result)
	}
	// The bad item did not block the rest of the batch.
	items, err := gallery.Feed()
	if err != nil {
		t.Fatalf("failed to read feed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the resolvable item only, got %d", len(items))
	}
	if got := svc.Status().LastOffset; got != 101 {
		t.Fatalf("expected offset 101, got %d", got)
	}
}

func TestSyncOverlappingCycleIsSkipped(t *testing.T) {
	client := &stubChannelClient{block: make(chan struct{})}
	svc, _ := newTestSyncService(t, client)

	first := make(chan error, 1)
	go func() {
		_, err := svc.SyncNow(context.Background())
		first <- err
	}()

	// Wait for the first cycle to reach the blocked fetch.
	deadline := time.After(2 * time.Second)
	for len(client.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := svc.SyncNow(context.Background()); !errors.Is(err, ErrSyncBusy) {
		t.Fatalf("expected ErrSyncBusy for overlapping cycle, got %v", err)
	}

	close(client.block)
	if err := <-first; err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
}

func TestSyncDisabledWithoutToken(t *testing.T) {
	gallery := NewGalleryService(setupTestDB(t))
	svc := NewSyncService(gallery, "", "@artchannel", time.Minute, nil)

	if svc.Enabled() {
		t.Fatal("expected adapter to be disabled without a token")
	}
	if _, err := svc.SyncNow(context.Background()); !errors.Is(err, ErrSyncDisabled) {
		t.Fatalf("expected ErrSyncDisabled, got %v", err)
	}
	if err := svc.Start(context.Background()); !errors.Is(err, ErrSyncDisabled) {
		t.Fatalf("expected ErrSyncDisabled from Start, got %v", err)
	}
	if status := svc.Status(); status.BotConfigured {
		t.Fatal("status must report the bot as unconfigured")
	}
}

func TestNormalizeUpdateShapes(t *testing.T) {
	captions := map[string]string{"group-1": "triptych"}

	photo := photoUpdate(1, 10, "file-10", "")
	photo.ChannelPost.MediaGroupID = "group-1"
	items := normalizeUpdate(photo, captions)
	if len(items) != 1 {
		t.Fatalf("expected one item from group photo, got %d", len(items))
	}
	if items[0].Caption != "triptych" {
		t.Fatalf("expected group caption to be shared, got %q", items[0].Caption)
	}
	if items[0].FileID != "file-10" || items[0].Width != 1280 {
		t.Fatalf("expected the largest photo size, got %+v", items[0])
	}

	document := telegramUpdate{
		UpdateID: 2,
		ChannelPost: &telegramMessage{
			MessageID: 11,
			Date:      time.Now().Unix(),
			Document:  &telegramDocument{FileID: "doc-11", FileName: "piece.png", MimeType: "image/png"},
		},
	}
	items = normalizeUpdate(document, nil)
	if len(items) != 1 || items[0].FileID != "doc-11" {
		t.Fatalf("expected image document to normalize, got %+v", items)
	}

	pdf := telegramUpdate{
		UpdateID: 3,
		ChannelPost: &telegramMessage{
			MessageID: 12,
			Document:  &telegramDocument{FileID: "doc-12", MimeType: "application/pdf"},
		},
	}
	if items := normalizeUpdate(pdf, nil); len(items) != 0 {
		t.Fatalf("expected non-image document to be ignored, got %+v", items)
	}

	text := telegramUpdate{UpdateID: 4, ChannelPost: &telegramMessage{MessageID: 13, Caption: "words only"}}
	if items := normalizeUpdate(text, nil); len(items) != 0 {
		t.Fatalf("expected text post to be ignored, got %+v", items)
	}
}

func TestGroupCaptions(t *testing.T) {
	first := photoUpdate(1, 10, "file-10", "series caption")
	first.ChannelPost.MediaGroupID = "group-1"
	second := photoUpdate(2, 11, "file-11", "")
	second.ChannelPost.MediaGroupID = "group-1"

	captions := groupCaptions([]telegramUpdate{first, second})
	if captions["group-1"] != "series caption" {
		t.Fatalf("expected group caption, got %q", captions["group-1"])
	}

	items := normalizeUpdate(second, captions)
	if len(items) != 1 || items[0].Caption != "series caption" {
		t.Fatalf("expected second group member to share the caption, got %+v", items)
	}
}
