package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mkuiper/bankboard/pkg/logger"
)

const (
	defaultBaseURL = "https://api.frankfurter.dev/v1"
	requestTimeout = 10 * time.Second
)

// Client fetches daily reference exchange rates from the Frankfurter API.
// The API serves ECB reference rates; weekends and holidays resolve to the
// closest preceding business day.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new Frankfurter API client.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL: defaultBaseURL,
		logger:  log.WithField("component", "frankfurter"),
	}
}

// SetBaseURL overrides the default base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// GetRate returns the base→quote rate for the given date. Dates in the
// future (or zero) query the latest published rates. An unknown currency
// pair is reported via found=false.
func (c *Client) GetRate(ctx context.Context, base, quote string, date time.Time) (float64, bool, error) {
	day := "latest"
	if !date.IsZero() && !date.After(time.Now().UTC()) {
		day = date.UTC().Format("2006-01-02")
	}

	params := url.Values{}
	params.Set("base", base)
	params.Set("symbols", quote)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, day, params.Encode())

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read response body: %w", err)
	}

	// Frankfurter answers 404 for unknown currencies.
	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("rate not published", "base", base, "quote", quote, "date", day)
		return 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("frankfurter API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, false, fmt.Errorf("failed to decode frankfurter response: %w", err)
	}

	value, ok := parsed.Rates[quote]
	if !ok {
		return 0, false, nil
	}

	c.logger.Debug("rate fetched", "base", base, "quote", quote, "date", parsed.Date,
		"rate", value, "duration_ms", time.Since(start).Milliseconds())
	return value, true, nil
}
