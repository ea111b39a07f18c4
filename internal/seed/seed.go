package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

//go:embed ventures.yaml
var fixture []byte

type pilotEntry struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	ContractValue string `yaml:"contract_value"`
	StartDate     string `yaml:"start_date"`
	Status        string `yaml:"status"`
}

type ventureEntry struct {
	ID              string       `yaml:"id"`
	Name            string       `yaml:"name"`
	Pod             string       `yaml:"pod"`
	Stage           string       `yaml:"stage"`
	Founder         string       `yaml:"founder"`
	Health          string       `yaml:"health"`
	BurnRateMonthly string       `yaml:"burn_rate_monthly"`
	RunwayMonths    int          `yaml:"runway_months"`
	NPSScore        int          `yaml:"nps_score"`
	LastUpdateText  string       `yaml:"last_update_text"`
	Description     string       `yaml:"description"`
	UpdatedAt       string       `yaml:"updated_at"`
	PilotCustomers  []pilotEntry `yaml:"pilot_customers"`
}

// Ventures decodes the embedded portfolio fixture.
func Ventures() ([]store.Venture, error) {
	return Parse(fixture)
}

func Parse(data []byte) ([]store.Venture, error) {
	var entries []ventureEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode venture fixture: %w", err)
	}
	ventures := make([]store.Venture, 0, len(entries))
	for _, entry := range entries {
		venture, err := entry.toVenture()
		if err != nil {
			return nil, fmt.Errorf("venture %s: %w", entry.ID, err)
		}
		ventures = append(ventures, venture)
	}
	return ventures, nil
}

func (e ventureEntry) toVenture() (store.Venture, error) {
	if strings.TrimSpace(e.ID) == "" {
		return store.Venture{}, fmt.Errorf("venture id required")
	}
	burn, err := decimal.NewFromString(defaultIfEmpty(e.BurnRateMonthly, "0"))
	if err != nil {
		return store.Venture{}, fmt.Errorf("burn_rate_monthly: %w", err)
	}
	updatedAt := time.Time{}
	if e.UpdatedAt != "" {
		updatedAt, err = time.Parse(time.RFC3339, e.UpdatedAt)
		if err != nil {
			return store.Venture{}, fmt.Errorf("updated_at: %w", err)
		}
	}
	venture := store.Venture{
		ID:              e.ID,
		Name:            e.Name,
		Pod:             e.Pod,
		Stage:           e.Stage,
		Founder:         e.Founder,
		Health:          store.Health(e.Health),
		BurnRateMonthly: burn,
		RunwayMonths:    e.RunwayMonths,
		NPSScore:        e.NPSScore,
		LastUpdateText:  e.LastUpdateText,
		Description:     e.Description,
		UpdatedAt:       updatedAt.UTC(),
		PilotCustomers:  make([]store.PilotCustomer, 0, len(e.PilotCustomers)),
	}
	for _, pilot := range e.PilotCustomers {
		value, err := decimal.NewFromString(defaultIfEmpty(pilot.ContractValue, "0"))
		if err != nil {
			return store.Venture{}, fmt.Errorf("pilot %s contract_value: %w", pilot.ID, err)
		}
		start, err := time.Parse(time.DateOnly, pilot.StartDate)
		if err != nil {
			return store.Venture{}, fmt.Errorf("pilot %s start_date: %w", pilot.ID, err)
		}
		venture.PilotCustomers = append(venture.PilotCustomers, store.PilotCustomer{
			ID:            pilot.ID,
			Name:          pilot.Name,
			ContractValue: value,
			StartDate:     start,
			Status:        store.PilotStatus(pilot.Status),
		})
	}
	venture.PilotCustomersCount = len(venture.PilotCustomers)
	return venture, nil
}

// EnsureSeed upserts every fixture venture that is not already present and
// reports how many were written.
func EnsureSeed(ctx context.Context, st store.VentureStore) (int, error) {
	ventures, err := Ventures()
	if err != nil {
		return 0, err
	}
	written := 0
	for _, venture := range ventures {
		existing, err := st.GetVenture(ctx, venture.ID)
		if err != nil {
			return written, fmt.Errorf("lookup venture %s: %w", venture.ID, err)
		}
		if existing != nil {
			continue
		}
		if err := st.UpsertVenture(ctx, venture); err != nil {
			return written, fmt.Errorf("seed venture %s: %w", venture.ID, err)
		}
		written++
	}
	return written, nil
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
