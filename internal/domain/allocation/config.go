package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrVersionConflict is returned when another update already claimed the next version
var ErrVersionConflict = errors.New("allocation: config version already exists")

// Config is one immutable version of the share table. Updates never modify a
// Config in place; they append a new version.
type Config struct {
	ID        uuid.UUID
	Version   int
	Shares    Shares
	UpdatedBy string
	CreatedAt time.Time
}

// NewConfig validates shares and builds a Config for the given version
func NewConfig(version int, shares Shares, updatedBy string) (*Config, error) {
	if err := shares.Validate(); err != nil {
		return nil, err
	}
	return &Config{
		ID:        uuid.New(),
		Version:   version,
		Shares:    shares,
		UpdatedBy: updatedBy,
		CreatedAt: time.Now(),
	}, nil
}

// Next returns the successor version carrying new shares
func (c *Config) Next(shares Shares, updatedBy string) (*Config, error) {
	return NewConfig(c.Version+1, shares, updatedBy)
}

// Allocate splits gross with this version's shares
func (c Config) Allocate(gross decimal.Decimal) (Result, error) {
	return Allocate(gross, c.Shares)
}

// Repository persists config versions
type Repository interface {
	// Current returns the highest version, or nil if none exists
	Current(ctx context.Context) (*Config, error)
	// Append inserts a new version; ErrVersionConflict if it already exists
	Append(ctx context.Context, cfg *Config) error
	// History returns the latest versions, newest first
	History(ctx context.Context, limit int) ([]Config, error)
}
