package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visage/internal/infra"
	"visage/internal/storage"
)

// Client wraps the bot API for the three things the pipeline needs from the
// chat platform: downloading user-submitted photos by opaque file reference,
// emitting the typing keep-alive, and fetching profile photos for share cards.
type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	store      *storage.FileStore
	logger     infra.Logger
}

// NewClient authenticates against the bot API and returns a ready client.
func NewClient(token, apiBase string, store *storage.FileStore, logger infra.Logger) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	endpoint := strings.TrimRight(apiBase, "/") + "/bot%s/%s"
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate bot: %w", err)
	}
	return &Client{
		bot:        bot,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		store:      store,
		logger:     logger,
	}, nil
}

// FetchFile downloads the file behind ref into the job's storage directory
// and returns the absolute local path. There is no retry here; the caller
// owns retry policy and a failure is fatal for the job.
func (c *Client) FetchFile(ctx context.Context, jobID, ref string) (string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: ref})
	if err != nil {
		return "", fmt.Errorf("telegram: resolve file %s: %w", ref, err)
	}

	data, err := c.download(ctx, file.Link(c.bot.Token))
	if err != nil {
		return "", fmt.Errorf("telegram: download file %s: %w", ref, err)
	}

	name := path.Base(file.FilePath)
	if name == "" || name == "." || name == "/" {
		name = ref + ".jpg"
	}
	key, err := c.store.Write(ctx, storage.JobKey(jobID, name), data)
	if err != nil {
		return "", fmt.Errorf("telegram: persist file %s: %w", ref, err)
	}
	return c.store.Path(key), nil
}

// SendTyping emits one typing chat action. Used by the heartbeat; the caller
// logs failures and never escalates them.
func (c *Client) SendTyping(chatRef int64) error {
	_, err := c.bot.Request(tgbotapi.NewChatAction(chatRef, tgbotapi.ChatTyping))
	return err
}

// ProfilePhoto fetches the user's current profile photo into job storage and
// returns its local path. An absent photo is not an error; the empty path
// tells the caller to fall back.
func (c *Client) ProfilePhoto(ctx context.Context, jobID string, userRef int64) (string, error) {
	photos, err := c.bot.GetUserProfilePhotos(tgbotapi.NewUserProfilePhotos(userRef))
	if err != nil {
		return "", fmt.Errorf("telegram: profile photos for %d: %w", userRef, err)
	}
	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return "", nil
	}

	// Sizes are ordered smallest first; take the largest rendition.
	sizes := photos.Photos[0]
	best := sizes[len(sizes)-1]
	local, err := c.FetchFile(ctx, jobID, best.FileID)
	if err != nil {
		return "", err
	}
	return local, nil
}

// SendMessage posts text to the chat. replyTo of 0 sends without a reply
// reference.
func (c *Client) SendMessage(chatRef int64, text string, replyTo int) error {
	msg := tgbotapi.NewMessage(chatRef, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	_, err := c.bot.Send(msg)
	return err
}

// SendPhoto posts a local image file with a caption.
func (c *Client) SendPhoto(chatRef int64, photoPath, caption string, replyTo int) error {
	msg := tgbotapi.NewPhoto(chatRef, tgbotapi.FilePath(photoPath))
	msg.Caption = caption
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	_, err := c.bot.Send(msg)
	return err
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
