// Package fx converts payment amounts into the settlement currency.
package fx

import (
	"context"
	"strings"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

const (
	// RateScale is the number of decimal places kept on a conversion rate.
	RateScale = 10
	// AmountScale is the number of decimal places kept on a settled amount.
	AmountScale = 2
)

// Converter is the currency conversion port consumed by the settlement
// services.
type Converter interface {
	// RateToSettlement returns how many settlement units one unit of currency
	// is worth.
	RateToSettlement(ctx context.Context, currency string) (decimal.Decimal, error)
}

// RateProvider fetches the latest table of settlement-base rates, where
// rates["USD"] = 1.0850 means one settlement unit buys 1.0850 USD.
type RateProvider interface {
	Name() string
	LatestRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Service answers rate lookups from an expiring cache filled by a
// RateProvider. Each miss refreshes the whole table.
type Service struct {
	provider RateProvider
	cache    *expirable.LRU[string, decimal.Decimal]
}

func NewService(provider RateProvider, cacheSize int, ttl time.Duration) *Service {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		provider: provider,
		cache:    expirable.NewLRU[string, decimal.Decimal](cacheSize, nil, ttl),
	}
}

func (s *Service) RateToSettlement(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == domain.SettlementCurrency {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := s.cache.Get(code); ok {
		return rate, nil
	}

	if _, err := s.Warm(ctx); err != nil {
		return decimal.Zero, err
	}
	rate, ok := s.cache.Get(code)
	if !ok {
		return decimal.Zero, domain.InputRule("unsupported currency: %s", code)
	}
	return rate, nil
}

// Warm reloads every rate from the provider and returns how many currencies
// were cached. Non-positive rates are skipped so lookups for them fail.
func (s *Service) Warm(ctx context.Context) (int, error) {
	logger.ExternalServiceCall(s.provider.Name(), "LatestRates")
	table, err := s.provider.LatestRates(ctx)
	logger.ExternalServiceResult(s.provider.Name(), "LatestRates", err, "currencies", len(table))
	if err != nil {
		return 0, err
	}

	n := 0
	for code, settlementToX := range table {
		if !settlementToX.IsPositive() {
			logger.Warn("Skipping non-positive FX rate", "currency", code, "rate", settlementToX.String())
			continue
		}
		s.cache.Add(strings.ToUpper(code), decimal.NewFromInt(1).DivRound(settlementToX, RateScale))
		n++
	}
	return n, nil
}

// Convert normalizes the currency code, looks up its rate and returns the
// rate together with the amount expressed in the settlement currency.
func Convert(ctx context.Context, c Converter, amount decimal.Decimal, currency string) (rate, settled decimal.Decimal, err error) {
	rate, err = c.RateToSettlement(ctx, currency)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, decimal.Zero, domain.BusinessRule("invalid FX rate for %s", currency)
	}
	return rate, amount.Mul(rate).Round(AmountScale), nil
}
