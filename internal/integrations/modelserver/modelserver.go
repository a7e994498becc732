package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"snapfix/internal/httpx"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Model servers answer 502/503 while weights are loading.
const (
	maxRetries     = 2
	initialBackoff = 250 * time.Millisecond
)

// Client talks to the inference server hosting the trained image and text
// models. Both endpoints answer {"probabilities": [...]} in label order.
type Client struct {
	baseURL string
	client  *http.Client
	backoff time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpx.ExternalHTTPClient(),
		backoff: initialBackoff,
	}
}

type probabilitiesResponse struct {
	Probabilities []float64 `json:"probabilities"`
	Error         string    `json:"error"`
}

type textRequest struct {
	Text string `json:"text"`
}

// ClassifyImage sends the raw upload bytes; decoding and resizing happen on
// the server.
func (c *Client) ClassifyImage(ctx context.Context, image []byte) ([]float64, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("modelserver: empty image")
	}
	return c.post(ctx, "/classify/image", "application/octet-stream", image)
}

func (c *Client) ClassifyText(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("modelserver: empty text")
	}
	payload, err := json.Marshal(textRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("modelserver: encoding request: %w", err)
	}
	return c.post(ctx, "/classify/text", "application/json", payload)
}

func (c *Client) post(ctx context.Context, path, contentType string, payload []byte) ([]float64, error) {
	var probs []float64
	b := retry.WithMaxRetries(maxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("modelserver: creating request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("modelserver: %s: %w", path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("modelserver: reading response: %w", err)
		}
		switch {
		case resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable:
			log.Printf("modelserver %s unavailable status=%d, retrying", path, resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("modelserver: %s returned %d", path, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("modelserver: %s returned %d: %s", path, resp.StatusCode, string(body))
		}

		probs, err = parseProbabilities(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return probs, nil
}

func parseProbabilities(body []byte) ([]float64, error) {
	var out probabilitiesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("modelserver: parsing response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("modelserver: %s", out.Error)
	}
	for i, p := range out.Probabilities {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("modelserver: probability %d out of range: %v", i, p)
		}
	}
	return out.Probabilities, nil
}
