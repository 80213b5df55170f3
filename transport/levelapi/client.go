package levelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/tout-va-bien/game/engine"
	"github.com/wricardo/tout-va-bien/game/service"
)

// DefaultTimeout bounds each call to the publishing API
const DefaultTimeout = 10 * time.Second

// Client talks to a level publishing API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// levelsResponse is the body of GET /levels
type levelsResponse struct {
	Success bool              `json:"success"`
	Levels  []json.RawMessage `json:"levels"`
}

// FetchLevels downloads the published levels. Entries that are not valid
// levels are skipped.
func (c *Client) FetchLevels(ctx context.Context) ([]*engine.Level, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/levels", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch levels: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch levels: API error: %d", resp.StatusCode)
	}

	var body levelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fetch levels: decode response: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("fetch levels: API reported failure")
	}

	levels := make([]*engine.Level, 0, len(body.Levels))
	for i, raw := range body.Levels {
		level, err := engine.ParseLevel(raw)
		if err != nil {
			log.Debug().Err(err).Int("index", i).Msg("skipping published level")
			continue
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// SubmitLevel posts a level. Any 2xx status is a success; the response
// body is not inspected.
func (c *Client) SubmitLevel(ctx context.Context, level *engine.Level) error {
	data, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("marshal level: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createlevel", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit level: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", service.ErrPublishFailed, resp.StatusCode)
	}
	return nil
}
