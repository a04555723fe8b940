package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultWhatsAppAPIBase is the Graph API root used when none is configured.
const DefaultWhatsAppAPIBase = "https://graph.facebook.com/v20.0"

// WhatsAppClient is a thin HTTP client for the WhatsApp Cloud API.
// It handles Bearer token authentication, JSON marshaling, and automatic
// retry with exponential backoff on HTTP 429. A 5xx is retried only for
// read receipts, since a message the API failed to acknowledge may still
// have been delivered.
type WhatsAppClient struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
	maxRetries    int
}

// NewWhatsAppClient creates a client sending from phoneNumberID.
func NewWhatsAppClient(baseURL, phoneNumberID, token string) *WhatsAppClient {
	if baseURL == "" {
		baseURL = DefaultWhatsAppAPIBase
	}
	return &WhatsAppClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *textBody `json:"text,omitempty"`
}

type readReceipt struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send delivers a text message to a phone number. It implements Sender.
func (c *WhatsAppClient) Send(ctx context.Context, to, text string) error {
	_, err := c.SendText(ctx, to, text)
	return err
}

// SendText delivers a text message and returns the message ID assigned
// by the API.
func (c *WhatsAppClient) SendText(ctx context.Context, to, text string) (string, error) {
	var resp sendResponse
	err := c.post(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: text},
	}, &resp, false)
	if err != nil {
		return "", err
	}
	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[0].ID, nil
}

// MarkAsRead sends a read receipt for an inbound message.
func (c *WhatsAppClient) MarkAsRead(ctx context.Context, messageID string) error {
	return c.post(ctx, readReceipt{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}, nil, true)
}

// post sends body to the messages endpoint. idempotent allows retrying
// server errors as well as rate limits.
func (c *WhatsAppClient) post(ctx context.Context, body, result interface{}, idempotent bool) error {
	path := "/" + c.phoneNumberID + "/messages"
	url := c.baseURL + path

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request POST %s: %w", path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || idempotent && resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("retryable status %d on POST %s", resp.StatusCode, path)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("authentication failed (401): check the WhatsApp access token")
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr apiError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				return fmt.Errorf("whatsapp API error (%d) on POST %s: %s",
					resp.StatusCode, path, apiErr.Error.Message)
			}
			return fmt.Errorf("unexpected status %d on POST %s: %s",
				resp.StatusCode, path, string(respBody))
		}

		if result == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from POST %s: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
