package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"avacharge/backend/services/notifier-service/internal/models"
)

const (
	defaultSummary    = "AvaCharge Admin"
	defaultThemeColor = "0076D7"
)

// ErrWebhookStatus is returned when the webhook answers with a non-2xx status.
var ErrWebhookStatus = errors.New("webhook rejected message")

// MessageCard is the legacy Office 365 connector card accepted by Teams incoming webhooks.
type MessageCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	Summary    string `json:"summary"`
	ThemeColor string `json:"themeColor"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// TeamsOptions configures TeamsClient.
type TeamsOptions struct {
	WebhookURL    string
	Timeout       time.Duration
	RatePerSecond float64
	Summary       string
	ThemeColor    string
}

// TeamsClient posts messages to a Teams incoming webhook.
type TeamsClient struct {
	url        string
	client     HTTPDoer
	timeout    time.Duration
	limiter    *rate.Limiter
	summary    string
	themeColor string
	logger     *zap.Logger
}

// NewTeamsClient returns client. A zero RatePerSecond disables rate limiting.
func NewTeamsClient(opts TeamsOptions, httpClient HTTPDoer, logger *zap.Logger) *TeamsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	c := &TeamsClient{
		url:        strings.TrimSpace(opts.WebhookURL),
		client:     httpClient,
		timeout:    opts.Timeout,
		summary:    opts.Summary,
		themeColor: opts.ThemeColor,
		logger:     logger,
	}
	if c.summary == "" {
		c.summary = defaultSummary
	}
	if c.themeColor == "" {
		c.themeColor = defaultThemeColor
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c
}

// Card renders msg as a MessageCard.
func (c *TeamsClient) Card(msg models.Message) MessageCard {
	return MessageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Summary:    c.summary,
		ThemeColor: c.themeColor,
		Title:      msg.Title,
		Text:       msg.Text,
	}
}

// Send posts one message. Any transport error or non-2xx status is returned.
func (c *TeamsClient) Send(ctx context.Context, msg models.Message) error {
	if c.url == "" {
		return errors.New("teams: webhook url is not configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("teams: rate limit: %w", err)
		}
	}

	body, err := json.Marshal(c.Card(msg))
	if err != nil {
		return fmt.Errorf("teams: encode card: %w", err)
	}

	status, resp, err := postJSON(ctx, c.client, c.url, body)
	if err != nil {
		return fmt.Errorf("teams: post: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrWebhookStatus, status, strings.TrimSpace(string(resp)))
	}

	c.logger.Debug("teams message sent",
		zap.String("kind", string(msg.Kind)),
		zap.String("station_id", msg.StationID),
		zap.String("title", msg.Title))
	return nil
}
