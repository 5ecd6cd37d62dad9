package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bikeshare-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type latestResponse struct {
	Result          string                     `json:"result"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
	ErrorType       string                     `json:"error-type"`
}

// ExchangeRateAPIProvider reads the latest settlement-base table from
// exchangerate-api.com (GET <baseURL>/<apiKey>/latest/EUR).
type ExchangeRateAPIProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewExchangeRateAPIProvider(baseURL, apiKey string, timeout time.Duration) *ExchangeRateAPIProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExchangeRateAPIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *ExchangeRateAPIProvider) Name() string { return "exchangerate-api" }

func (p *ExchangeRateAPIProvider) LatestRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", p.baseURL, p.apiKey, domain.SettlementCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fx request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.Transient(err, "FX provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.Transient(nil, "FX provider error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.BusinessRule("FX provider error: %s", resp.Status)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.BusinessRule("FX provider returned an invalid response")
	}
	if !strings.EqualFold(body.Result, "success") || body.ConversionRates == nil {
		return nil, domain.BusinessRule("FX provider returned an invalid response")
	}
	return body.ConversionRates, nil
}
