// Package seed loads reference customers and bikes from a YAML file. The core
// never creates either, so development and test deployments start from a
// seed file.
package seed

import (
	"context"
	"fmt"
	"os"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Customer struct {
	ID          string `yaml:"id"`
	Email       string `yaml:"email"`
	FullName    string `yaml:"full_name"`
	DeviceToken string `yaml:"device_token"`
}

type Bike struct {
	ID           int64  `yaml:"id"`
	Description  string `yaml:"description"`
	Status       string `yaml:"status"`
	DailyRateEur string `yaml:"daily_rate_eur"`
	ProviderKind string `yaml:"provider_kind"`
	ProviderID   string `yaml:"provider_id"`
}

type Data struct {
	Customers []Customer `yaml:"customers"`
	Bikes     []Bike     `yaml:"bikes"`
}

// Target is implemented by both storage backends.
type Target interface {
	SeedCustomer(ctx context.Context, c domain.Customer) error
	SeedBike(ctx context.Context, b domain.Bike) error
}

func ReadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &data, nil
}

// Apply converts and inserts every record. It stops at the first invalid
// record so a broken file never half-applies silently.
func Apply(ctx context.Context, target Target, data *Data) error {
	for i, c := range data.Customers {
		id, err := uuid.Parse(c.ID)
		if err != nil {
			return fmt.Errorf("customer %d: invalid id %q: %w", i, c.ID, err)
		}
		if c.Email == "" {
			return fmt.Errorf("customer %d: email is required", i)
		}
		err = target.SeedCustomer(ctx, domain.Customer{
			ID:          id,
			Email:       c.Email,
			FullName:    c.FullName,
			DeviceToken: c.DeviceToken,
		})
		if err != nil {
			return fmt.Errorf("customer %s: %w", c.Email, err)
		}
	}

	for i, b := range data.Bikes {
		bike, err := b.toDomain()
		if err != nil {
			return fmt.Errorf("bike %d: %w", i, err)
		}
		if err := target.SeedBike(ctx, bike); err != nil {
			return fmt.Errorf("bike %d: %w", b.ID, err)
		}
	}

	logger.Info("Seed data applied", "customers", len(data.Customers), "bikes", len(data.Bikes))
	return nil
}

func (b Bike) toDomain() (domain.Bike, error) {
	if b.ID <= 0 {
		return domain.Bike{}, fmt.Errorf("id must be positive")
	}
	rate, err := decimal.NewFromString(b.DailyRateEur)
	if err != nil || rate.IsNegative() {
		return domain.Bike{}, fmt.Errorf("invalid daily_rate_eur %q", b.DailyRateEur)
	}
	kind, err := domain.ParseProviderKind(b.ProviderKind)
	if err != nil {
		return domain.Bike{}, err
	}
	providerID, err := uuid.Parse(b.ProviderID)
	if err != nil {
		return domain.Bike{}, fmt.Errorf("invalid provider_id %q: %w", b.ProviderID, err)
	}
	status := domain.BikeStatusAvailable
	if b.Status != "" {
		if status, err = domain.ParseBikeStatus(b.Status); err != nil {
			return domain.Bike{}, err
		}
	}
	return domain.Bike{
		ID:           b.ID,
		Description:  b.Description,
		Status:       status,
		DailyRateEur: rate,
		Provider:     domain.ProviderRef{Kind: kind, ID: providerID},
	}, nil
}
