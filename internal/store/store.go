package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Health string

const (
	HealthOnTrack  Health = "On Track"
	HealthAtRisk   Health = "At Risk"
	HealthCritical Health = "Critical"
)

type PilotStatus string

const (
	PilotActive  PilotStatus = "Active"
	PilotChurned PilotStatus = "Churned"
	PilotPending PilotStatus = "Pending"
)

type PilotCustomer struct {
	ID            string
	Name          string
	ContractValue decimal.Decimal
	StartDate     time.Time
	Status        PilotStatus
}

// Venture is a portfolio company as stored. PilotCustomersCount is the
// denormalized column and may drift from len(PilotCustomers); the
// projection always reports the list length.
type Venture struct {
	ID                  string
	Name                string
	Pod                 string
	Stage               string
	Founder             string
	Health              Health
	BurnRateMonthly     decimal.Decimal
	RunwayMonths        int
	NPSScore            int
	PilotCustomersCount int
	LastUpdateText      string
	Description         string
	UpdatedAt           time.Time
	PilotCustomers      []PilotCustomer
}

// VentureFilter is ANDed. Empty fields do not filter.
type VentureFilter struct {
	Name      string
	Founder   string
	Pod       string
	Stage     string
	Health    string
	Text      string
	MinRunway *int
	MaxBurn   *decimal.Decimal
}

type SortKey struct {
	Field string
	Desc  bool
}

type ThresholdOp string

const (
	ThresholdGreater ThresholdOp = "gt"
	ThresholdLess    ThresholdOp = "lt"
)

type Threshold struct {
	Field string
	Op    ThresholdOp
	Value float64
}

// RankQuery drives metric ranking. With DefaultOrder set the rows are ordered
// by updated_at descending; with no sort keys and no DefaultOrder they keep
// natural order (id order in SQL). Limit <= 0 means no cap.
type RankQuery struct {
	Health       string
	Pod          string
	SortKeys     []SortKey
	DefaultOrder bool
	Threshold    *Threshold
	Limit        int
}

type VentureStore interface {
	SearchVentures(ctx context.Context, filter VentureFilter) ([]Venture, error)
	RankVentures(ctx context.Context, query RankQuery) ([]Venture, error)
	GetVenture(ctx context.Context, ventureID string) (*Venture, error)
	UpsertVenture(ctx context.Context, venture Venture) error
	Ping(ctx context.Context) error
}

func CloneVenture(v Venture) Venture {
	cloned := v
	if v.PilotCustomers != nil {
		cloned.PilotCustomers = append([]PilotCustomer{}, v.PilotCustomers...)
	}
	return cloned
}
