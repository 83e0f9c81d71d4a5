// Package notify sends run outcome notifications. The ntfy sink posts to an
// ntfy.sh-compatible topic; a nop sink is used when notifications are not
// configured.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is one notification.
type Message struct {
	Title    string
	Body     string
	Priority string // ntfy priority name, e.g. "high"; empty for default
	Tags     []string
}

// Sink delivers notifications.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Nop is a sink that discards everything.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }

// NtfySink posts messages to an ntfy topic over HTTP.
type NtfySink struct {
	logger zerolog.Logger
	client *http.Client
	url    string
	token  string
}

// NewNtfySink creates a sink for the given server URL and topic. token is
// optional.
func NewNtfySink(logger zerolog.Logger, serverURL, topic, token string) *NtfySink {
	return &NtfySink{
		logger: logger.With().Str("component", "notify").Logger(),
		client: &http.Client{Timeout: 10 * time.Second},
		url:    strings.TrimRight(serverURL, "/") + "/" + topic,
		token:  token,
	}
}

// Send posts the message. Delivery failures are returned to the caller but
// are not fatal to a run; the pipeline logs and continues.
func (s *NtfySink) Send(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}

	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if msg.Priority != "" {
		req.Header.Set("Priority", msg.Priority)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: %s", resp.Status)
	}

	s.logger.Debug().Str("title", msg.Title).Msg("notification sent")
	return nil
}
