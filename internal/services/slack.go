// Slack Web API client for the music channel
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/jamx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	slackBaseURL         = "https://slack.com/api"
	slackPageSize        = 200
	slackMaxChannelPages = 5
	defaultHistoryPacing = 200 * time.Millisecond
)

// SlackMessage is a channel or thread message as returned by the history endpoints.
type SlackMessage struct {
	TS         string `json:"ts"`
	ThreadTS   string `json:"thread_ts,omitempty"`
	Text       string `json:"text"`
	ReplyCount int    `json:"reply_count,omitempty"`
	BotID      string `json:"bot_id,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
}

// FromUser reports whether the message was written by a person rather than a bot or system event.
func (m SlackMessage) FromUser() bool {
	return m.BotID == "" && m.Subtype == ""
}

type slackEnvelope struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error"`
	HasMore          bool   `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type conversationsList struct {
	slackEnvelope
	Channels []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channels"`
}

type conversationsHistory struct {
	slackEnvelope
	Messages []SlackMessage `json:"messages"`
}

// SlackClient calls the Slack Web API with a bot token.
type SlackClient struct {
	api   *APIService
	pages *rate.Limiter
}

// SlackOpts configures a [SlackClient].
type SlackOpts struct {
	BotToken      string
	BaseURL       string
	HTTPClient    *http.Client
	HistoryPacing time.Duration
}

// NewSlackClient creates a [SlackClient] from opts.
func NewSlackClient(opts SlackOpts) *SlackClient {
	if opts.BaseURL == "" {
		opts.BaseURL = slackBaseURL
	}
	if opts.HistoryPacing <= 0 {
		opts.HistoryPacing = defaultHistoryPacing
	}

	api := NewAPIService(opts.BaseURL, opts.HTTPClient).
		WithHeader("Authorization", "Bearer "+opts.BotToken)

	return &SlackClient{
		api:   api,
		pages: rate.NewLimiter(rate.Every(opts.HistoryPacing), 1),
	}
}

// ResolveChannelID finds the ID of the public channel called name.
//
// At most five pages of 200 channels are searched.
func (c *SlackClient) ResolveChannelID(ctx context.Context, name string) (string, error) {
	cursor := ""
	for page := 0; page < slackMaxChannelPages; page++ {
		query := url.Values{}
		query.Set("types", "public_channel")
		query.Set("exclude_archived", "true")
		query.Set("limit", strconv.Itoa(slackPageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var list conversationsList
		if err := c.get(ctx, "/conversations.list", query, &list); err != nil {
			return "", err
		}

		for _, ch := range list.Channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}

		cursor = list.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return "", fmt.Errorf("%w: #%s", shared.ErrChannelNotFound, name)
}

// FetchChannelMessages returns the text of every user message in channelID, including thread replies.
//
// History pages are paced with a fixed delay. A thread whose replies cannot be fetched is skipped.
func (c *SlackClient) FetchChannelMessages(ctx context.Context, channelID string) ([]string, error) {
	var texts []string
	cursor := ""

	for {
		if err := c.pages.Wait(ctx); err != nil {
			return nil, err
		}

		query := url.Values{}
		query.Set("channel", channelID)
		query.Set("limit", strconv.Itoa(slackPageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var history conversationsHistory
		if err := c.get(ctx, "/conversations.history", query, &history); err != nil {
			return nil, err
		}

		for _, msg := range history.Messages {
			if !msg.FromUser() {
				continue
			}
			if msg.Text != "" {
				texts = append(texts, msg.Text)
			}
			if msg.ReplyCount > 0 && msg.TS != "" {
				if replies, err := c.threadReplies(ctx, channelID, msg.TS); err == nil {
					texts = append(texts, replies...)
				}
			}
		}

		cursor = history.ResponseMetadata.NextCursor
		if cursor == "" && !history.HasMore {
			return texts, nil
		}
	}
}

func (c *SlackClient) threadReplies(ctx context.Context, channelID, threadTS string) ([]string, error) {
	var texts []string
	cursor := ""

	for {
		if err := c.pages.Wait(ctx); err != nil {
			return nil, err
		}

		query := url.Values{}
		query.Set("channel", channelID)
		query.Set("ts", threadTS)
		query.Set("limit", strconv.Itoa(slackPageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var replies conversationsHistory
		if err := c.get(ctx, "/conversations.replies", query, &replies); err != nil {
			return nil, err
		}

		for _, msg := range replies.Messages {
			if msg.FromUser() && msg.Text != "" {
				texts = append(texts, msg.Text)
			}
		}

		cursor = replies.ResponseMetadata.NextCursor
		if cursor == "" {
			return texts, nil
		}
	}
}

// PostMessage posts text to channel, threaded under threadTS when it is non-empty.
func (c *SlackClient) PostMessage(ctx context.Context, channel, threadTS, text string) error {
	payload := map[string]string{"channel": channel, "text": text}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	return c.post(ctx, "/chat.postMessage", payload)
}

// AddReaction adds the emoji name to the message at ts.
func (c *SlackClient) AddReaction(ctx context.Context, channel, ts, name string) error {
	return c.post(ctx, "/reactions.add", map[string]string{
		"channel":   channel,
		"timestamp": ts,
		"name":      name,
	})
}

// envelope exposes the ok/error fields shared by every Slack response.
type envelope interface {
	result() slackEnvelope
}

func (e slackEnvelope) result() slackEnvelope { return e }

func (c *SlackClient) get(ctx context.Context, method string, query url.Values, v envelope) error {
	resp, err := c.api.Get(ctx, method, query)
	if err != nil {
		return err
	}
	return checkSlack(method, resp, v)
}

func (c *SlackClient) post(ctx context.Context, method string, payload any) error {
	resp, err := c.api.PostJSON(ctx, method, payload)
	if err != nil {
		return err
	}
	var env slackEnvelope
	return checkSlack(method, resp, &env)
}

func checkSlack(method string, resp *APIResponse, v envelope) error {
	if !resp.OK() {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrSlackAPI, method, resp.StatusCode)
	}
	if err := resp.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrSlackAPI, method, err)
	}
	if env := v.result(); !env.OK {
		reason := env.Error
		if reason == "" {
			reason = "unknown"
		}
		return fmt.Errorf("%w: %s: %s", shared.ErrSlackAPI, method, reason)
	}
	return nil
}
