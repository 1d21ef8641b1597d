package wpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agendazap/utils"

	"go.uber.org/zap"
)

// Client talks to one tenant's WAHA messaging bridge. All calls are bounded
// by the HTTP client timeout; the engine never hangs on a slow bridge.
type Client struct {
	baseURL string
	session string
	apiKey  string
	http    *http.Client
}

// NewClient builds a bridge client for the given endpoint and session.
func NewClient(baseURL, session, apiKey string) *Client {
	if session == "" {
		session = "default"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health checks the bridge version endpoint. Failures are reported, not
// fatal; the bridge may simply not be up yet.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("bridge health returned %d", resp.StatusCode)
	}
	return nil
}

// SendText sends a text message to a chat. Errors are logged here as well as
// returned: most call sites treat outbound sends as fire-and-forget.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"session": c.session,
		"chatId":  chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		utils.GetLogger().Warn("bridge sendText failed",
			zap.String("chatId", chatID), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		utils.GetLogger().Warn("bridge sendText rejected",
			zap.String("chatId", chatID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return fmt.Errorf("bridge sendText returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("WAHA-API-KEY", c.apiKey)
	}
}
