package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fatura/internal/domain/currency"
	"fatura/internal/domain/exchange"
)

const (
	defaultTimeout = 10 * time.Second
	latestPath     = "/latest"
)

// Config holds the connection settings for the rate provider.
type Config struct {
	BaseURL  string
	Pivot    string
	APIToken string
	Timeout  time.Duration
}

// Client fetches exchange rates from an HTTP provider that publishes a
// single table of rates against one pivot currency. Rates between two
// non-pivot currencies are derived by crossing through the pivot.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pivot      string
	apiToken   string
}

// Ensure Client implements the rate source contract
var _ exchange.RateSource = (*Client)(nil)

// NewClient creates a new rate provider client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pivot := strings.ToUpper(strings.TrimSpace(cfg.Pivot))
	if pivot == "" {
		pivot = currency.DefaultCode
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		pivot:      pivot,
		apiToken:   cfg.APIToken,
	}
}

// latestResponse is the provider's rate table payload
type latestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRate returns the quoted rate from base to target. Every failure mode
// (network, non-200, bad payload, missing code) maps onto
// exchange.ErrRateSourceUnavailable so callers can fall back uniformly.
func (c *Client) FetchRate(ctx context.Context, base, target string) (exchange.Quote, error) {
	table, err := c.fetchTable(ctx)
	if err != nil {
		return exchange.Quote{}, err
	}

	baseRate, err := table.rateFor(base)
	if err != nil {
		return exchange.Quote{}, err
	}
	targetRate, err := table.rateFor(target)
	if err != nil {
		return exchange.Quote{}, err
	}
	if baseRate.Sign() <= 0 {
		return exchange.Quote{}, fmt.Errorf("%w: non-positive pivot rate %s for %s", exchange.ErrRateSourceUnavailable, baseRate, base)
	}

	return exchange.Quote{
		Rate:      targetRate.Div(baseRate),
		Timestamp: table.timestamp,
	}, nil
}

// rateTable is the parsed provider table with codes normalized to upper case.
// The pivot itself quotes at exactly 1 whether or not the provider lists it.
type rateTable struct {
	pivot     string
	rates     map[string]decimal.Decimal
	timestamp time.Time
}

func (t *rateTable) rateFor(code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == t.pivot {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := t.rates[code]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no rate for %s against %s", exchange.ErrRateSourceUnavailable, code, t.pivot)
	}
	return rate, nil
}

func (c *Client) fetchTable(ctx context.Context) (*rateTable, error) {
	reqURL := fmt.Sprintf("%s%s?base=%s", c.baseURL, latestPath, url.QueryEscape(c.pivot))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", exchange.ErrRateSourceUnavailable, err)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", exchange.ErrRateSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", exchange.ErrRateSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d: %s", exchange.ErrRateSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", exchange.ErrRateSourceUnavailable, err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty rate table", exchange.ErrRateSourceUnavailable)
	}

	table := &rateTable{
		pivot: c.pivot,
		rates: make(map[string]decimal.Decimal, len(payload.Rates)),
	}
	for code, value := range payload.Rates {
		table.rates[strings.ToUpper(code)] = decimal.NewFromFloat(value)
	}
	// The provider dates its table rather than timestamping it. A zero
	// timestamp is fine, the cache stamps those with the local clock.
	if ts, err := time.Parse("2006-01-02", payload.Date); err == nil {
		table.timestamp = ts
	}

	return table, nil
}
