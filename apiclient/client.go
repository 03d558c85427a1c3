// Package apiclient fetches reliability reference data from REST sources.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"car-scout/cache"
	"car-scout/models"
	"car-scout/utils"
)

// ErrNoData indicates a source has nothing for the requested vehicle.
var ErrNoData = errors.New("no reliability data")

// Source provides reference records for a make/model/year.
type Source interface {
	Name() string
	Fetch(ctx context.Context, key cache.Key) ([]models.ReferenceRecord, error)
}

// Client is a Source backed by a JSON REST API exposing
// GET {base}/reliability?make=&model=&year=.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// NewClient creates a Client. Zero durations fall back to 10s timeout and
// 500ms base retry delay.
func NewClient(cfg ClientConfig, logger *utils.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.BaseDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (c *Client) Name() string { return c.name }

type reliabilityResponse struct {
	Records []models.ReferenceRecord `json:"records"`
}

// Fetch returns the source's records for key. Records without a source
// name are attributed to this client. A 404 or an empty record list
// returns ErrNoData; other 4xx responses are not retried.
func (c *Client) Fetch(ctx context.Context, key cache.Key) ([]models.ReferenceRecord, error) {
	q := url.Values{}
	q.Set("make", key.Make)
	q.Set("model", key.Model)
	if key.Year > 0 {
		q.Set("year", strconv.Itoa(key.Year))
	}
	endpoint := c.baseURL + "/reliability?" + q.Encode()

	var records []models.ReferenceRecord
	err := c.retry.Do(ctx, c.name+" "+key.String(), func() error {
		var err error
		records, err = c.get(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s %s: %w", c.name, key, ErrNoData)
	}
	for i := range records {
		if records[i].Source == "" {
			records[i].Source = c.name
		}
	}
	c.logger.Debug("[apiclient] %s returned %d records for %s", c.name, len(records), key)
	return records, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]models.ReferenceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, utils.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, utils.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, utils.Permanent(ErrNoData)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, utils.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload reliabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, utils.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return payload.Records, nil
}
