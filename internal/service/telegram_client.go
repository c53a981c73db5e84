package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

type telegramUpdate struct {
	UpdateID    int64            `json:"update_id"`
	ChannelPost *telegramMessage `json:"channel_post"`
	Message     *telegramMessage `json:"message"`
}

// post returns the message carried by the update, whichever field the
// channel delivered it in.
func (u telegramUpdate) post() *telegramMessage {
	if u.ChannelPost != nil {
		return u.ChannelPost
	}
	return u.Message
}

type telegramMessage struct {
	MessageID    int64             `json:"message_id"`
	Date         int64             `json:"date"`
	Caption      string            `json:"caption"`
	MediaGroupID string            `json:"media_group_id"`
	Photo        []telegramPhoto   `json:"photo"`
	Document     *telegramDocument `json:"document"`
}

type telegramPhoto struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type telegramDocument struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

type getUpdatesResponse struct {
	OK          bool             `json:"ok"`
	Result      []telegramUpdate `json:"result"`
	Description string           `json:"description"`
}

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FileID   string `json:"file_id"`
		FilePath string `json:"file_path"`
	} `json:"result"`
	Description string `json:"description"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// telegramClient talks to the Telegram Bot API over plain HTTPS. Every call
// is context-bound and carries the client timeout.
type telegramClient struct {
	token   string
	baseURL string
	http    httpDoer
}

func newTelegramClient(token string) *telegramClient {
	return &telegramClient{
		token:   strings.TrimSpace(token),
		baseURL: telegramAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *telegramClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	c.http = client
}

func (c *telegramClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

// getUpdates fetches channel updates past the given offset, oldest first.
func (c *telegramClient) getUpdates(ctx context.Context, offset int64) ([]telegramUpdate, error) {
	params := url.Values{}
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}
	params.Set("allowed_updates", `["channel_post"]`)

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.token, params.Encode())
	var parsed getUpdatesResponse
	if err := c.call(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram getUpdates rejected: %s", apiErrorText(parsed.Description))
	}
	return parsed.Result, nil
}

// resolveFileURL turns a file_id into a fetchable download URL.
func (c *telegramClient) resolveFileURL(ctx context.Context, fileID string) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.baseURL, c.token, url.QueryEscape(fileID))
	var parsed getFileResponse
	if err := c.call(ctx, endpoint, &parsed); err != nil {
		return "", err
	}
	if !parsed.OK || strings.TrimSpace(parsed.Result.FilePath) == "" {
		return "", fmt.Errorf("telegram getFile rejected: %s", apiErrorText(parsed.Description))
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, parsed.Result.FilePath), nil
}

func (c *telegramClient) call(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reach telegram api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("telegram rate limited: %s", resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("telegram api error: %s", apiErrorText(strings.TrimSpace(string(body))))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	return nil
}

func apiErrorText(description string) string {
	if strings.TrimSpace(description) == "" {
		return "no description"
	}
	return description
}
