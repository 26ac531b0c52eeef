// Package mailer delivers terminal job notifications through a
// SendGrid-compatible mail API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/domain/model"
)

// Config captures the subset of mail API behaviour we need.
type Config struct {
	BaseURL    string
	APIKey     string
	From       string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client sends job notifications as plain-text emails.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	retryLimit int
	client     *http.Client
}

// NewClient builds a mail client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mail base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mail api key is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail from address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		from:       strings.TrimSpace(cfg.From),
		retryLimit: retries,
		client:     hc,
	}, nil
}

// Notify implements core.Notifier.
func (c *Client) Notify(ctx context.Context, n core.Notification) error {
	subject, content := FormatNotification(n)
	body, err := json.Marshal(mailPayload(c.from, n.Email, subject, content))
	if err != nil {
		return fmt.Errorf("encode mail payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

// FormatNotification renders the subject and plain-text body for a terminal
// job transition.
func FormatNotification(n core.Notification) (subject, content string) {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Your video generation job %s has %s.\n\n", n.JobID, n.Status)
	if n.Status == model.JobStatusCompleted && n.Result != "" {
		fmt.Fprintf(&b, "Video: %s\n", n.Result)
	}
	if n.Status == model.JobStatusFailed && n.Summary != "" {
		fmt.Fprintf(&b, "Reason: %s\n", n.Summary)
	}

	switch n.Status {
	case model.JobStatusCompleted:
		subject = "Your video is ready"
	default:
		subject = "Your video generation failed"
	}
	return subject, b.String()
}

func mailPayload(from, to, subject, content string) map[string]any {
	return map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": from},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": content},
		},
	}
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body drained below

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("mail api %s: read response: %w", resp.Status, readErr)
		}
		return fmt.Errorf("mail api %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	if _, err = io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain mail response: %w", err)
	}
	return nil
}
