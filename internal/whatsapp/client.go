// Package whatsapp sends replies through the WhatsApp Cloud API. When no
// access token is configured the client degrades to a logger, so the bot
// still works through the debug endpoints.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://graph.facebook.com/v19.0"

// Sender pushes a text reply to a customer on the outbound channel.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Client talks to the Graph API messages endpoint.
type Client struct {
	apiBase       string
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
}

// New builds a Cloud API client. apiBase is overridable for tests.
func New(accessToken, phoneNumberID, apiBase string) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		apiBase:       strings.TrimRight(apiBase, "/"),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText delivers one text message.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	msg := textMessage{MessagingProduct: "whatsapp", To: to, Type: "text"}
	msg.Text.Body = text

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Disabled is a Sender that only logs, for when no credentials are set.
type Disabled struct {
	Log *zap.SugaredLogger
}

func (d Disabled) SendText(_ context.Context, to, text string) error {
	if d.Log != nil {
		d.Log.Infow("outbound send skipped (no whatsapp credentials)", "to", to, "chars", len(text))
	}
	return nil
}
