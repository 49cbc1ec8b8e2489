package albion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET CLIENT - chunked price fetches
// ═══════════════════════════════════════════════════════════════════════════════
//
// One GET per chunk of item ids, issued serially:
//   GET <base><id,id,...>?locations=<a,b>&qualities=<1,2,...>
//
// A chunk that fails is logged and dropped; the rest of the batch still counts.
//
// ═══════════════════════════════════════════════════════════════════════════════

const userAgent = "albionarb/1.0"

// ClientConfig configures the price API client
type ClientConfig struct {
	BaseURL           string
	ChunkSize         int
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client fetches price records from the Albion Online Data API
type Client struct {
	http      *resty.Client
	baseURL   string
	chunkSize int
	limiter   *rate.Limiter
}

// NewClient creates a new price API client
func NewClient(cfg ClientConfig) *Client {
	httpClient := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		chunkSize: cfg.ChunkSize,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// FetchPrices returns every record for items at the given locations and
// qualities, concatenated in chunk order. Failed chunks are omitted.
func (c *Client) FetchPrices(ctx context.Context, items, locations []string, qualities []Quality) []PriceRecord {
	chunks := ChunkItems(items, c.chunkSize)
	query := map[string]string{
		"locations": strings.Join(locations, ","),
		"qualities": joinQualities(qualities),
	}

	var results []PriceRecord
	failed := 0
	for i, chunk := range chunks {
		if err := c.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Int("chunk", i).Msg("Price fetch interrupted")
			break
		}

		records, err := c.fetchChunk(ctx, chunk, query)
		if err != nil {
			failed++
			log.Error().Err(err).Int("chunk", i).Int("items", len(chunk)).Msg("Failed to fetch data for chunk")
			continue
		}
		results = append(results, records...)
	}

	log.Debug().
		Int("chunks", len(chunks)).
		Int("failed", failed).
		Int("records", len(results)).
		Msg("📦 Prices fetched")

	return results
}

func (c *Client) fetchChunk(ctx context.Context, chunk []string, query map[string]string) ([]PriceRecord, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(c.baseURL + strings.Join(chunk, ","))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	var records []PriceRecord
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return records, nil
}
