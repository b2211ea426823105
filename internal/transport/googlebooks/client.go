// Package googlebooks fetches catalog volumes used to seed the resource corpus.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
)

const (
	defaultBaseURL = "https://www.googleapis.com/books/v1"
	// maxPerPage is the API ceiling for maxResults.
	maxPerPage = 40
)

// Config holds client settings. RPS <= 0 disables client-side pacing.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
}

// Client queries the volumes endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a catalog client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return c
}

// Search returns up to maxResults volumes matching query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Volume, error) {
	if maxResults <= 0 {
		return nil, nil
	}
	maxResults = min(maxResults, maxPerPage)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("printType", "books")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch volumes %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch volumes %q: status %d: %s", query, resp.StatusCode, body)
	}

	var page volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode volumes %q: %w", query, err)
	}

	out := make([]Volume, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, convertVolume(it))
	}
	return out, nil
}

// Resources searches topic and converts the volumes into resources tagged with it.
func (c *Client) Resources(ctx context.Context, topic string, maxResults int) ([]domres.Resource, error) {
	vols, err := c.Search(ctx, topic, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]domres.Resource, 0, len(vols))
	for _, v := range vols {
		if v.ID == "" {
			continue
		}
		out = append(out, v.Resource(topic))
	}
	return out, nil
}

func convertVolume(it apiVolume) Volume {
	info := it.VolumeInfo
	v := Volume{
		ID:          it.ID,
		Title:       info.Title,
		Description: info.Description,
		URL:         info.InfoLink,
		Categories:  info.Categories,
	}
	if v.Title == "" {
		v.Title = "Untitled"
	}
	if v.Description == "" {
		v.Description = info.Subtitle
	}
	if v.Description == "" {
		v.Description = v.Title
	}
	return v
}
