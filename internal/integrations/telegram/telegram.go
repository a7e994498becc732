package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"snapfix/internal/httpx"
	"strings"
)

const defaultAPIURL = "https://api.telegram.org"

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Dispatcher sends citizen notifications through the Telegram Bot API.
// The recipient is the chat id the bot front-end stored on the report.
type Dispatcher struct {
	token  string
	apiURL string
	client *http.Client
}

func NewDispatcher(token string) *Dispatcher {
	return &Dispatcher{
		token:  token,
		apiURL: defaultAPIURL,
		client: httpx.ExternalHTTPClient(),
	}
}

// WithAPIURL points the dispatcher at another Bot API host.
func (d *Dispatcher) WithAPIURL(apiURL string) *Dispatcher {
	d.apiURL = strings.TrimRight(apiURL, "/")
	return d
}

func (d *Dispatcher) Send(ctx context.Context, recipient, message string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("telegram: empty chat id")
	}
	payload, err := json.Marshal(sendMessageRequest{ChatID: recipient, Text: message})
	if err != nil {
		return fmt.Errorf("telegram: encoding request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", d.apiURL, d.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		return fmt.Errorf("telegram: sendMessage failed: %w", redact(err, d.token))
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("telegram: reading response: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("telegram: API returned %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram: API returned %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}
