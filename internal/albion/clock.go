package albion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Clock reads the current time from a worldtimeapi-style service. Every age
// in a cycle is measured against this value rather than the local clock.
type Clock struct {
	http *resty.Client
	url  string
}

type timeResponse struct {
	Datetime    string `json:"datetime"`
	UTCDatetime string `json:"utc_datetime"`
}

// NewClock creates a time service client
func NewClock(url string, timeout time.Duration) *Clock {
	httpClient := resty.New().SetHeader("User-Agent", userAgent)
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	return &Clock{http: httpClient, url: url}
}

// Now returns the service's current time in UTC
func (c *Clock) Now(ctx context.Context) (time.Time, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return time.Time{}, fmt.Errorf("time service request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return time.Time{}, fmt.Errorf("time service status %d", resp.StatusCode())
	}

	var body timeResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return time.Time{}, fmt.Errorf("failed to unmarshal time response: %w", err)
	}

	raw := body.Datetime
	if raw == "" {
		raw = body.UTCDatetime
	}
	if raw == "" {
		return time.Time{}, fmt.Errorf("time service returned no datetime")
	}

	now, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", raw, err)
	}
	return now.UTC(), nil
}
