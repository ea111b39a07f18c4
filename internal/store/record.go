package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type PilotCustomerRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ContractValue float64 `json:"contract_value"`
	StartDate     string  `json:"start_date"`
	Status        string  `json:"status"`
}

// VentureRecord is the public, JSON-safe shape of a venture returned to the
// model, the HTTP API and the session focus state.
type VentureRecord struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name"`
	Pod                 string                `json:"pod"`
	Stage               string                `json:"stage"`
	Founder             string                `json:"founder"`
	Health              string                `json:"health"`
	BurnRateMonthly     float64               `json:"burn_rate_monthly"`
	RunwayMonths        int                   `json:"runway_months"`
	NPSScore            int                   `json:"nps_score"`
	PilotCustomersCount int                   `json:"pilot_customers_count"`
	LastUpdateText      string                `json:"last_update_text"`
	Description         string                `json:"description"`
	PilotCustomers      []PilotCustomerRecord `json:"pilot_customers"`
}

func Project(v Venture) VentureRecord {
	pilots := make([]PilotCustomerRecord, 0, len(v.PilotCustomers))
	for _, pilot := range v.PilotCustomers {
		pilots = append(pilots, PilotCustomerRecord{
			ID:            pilot.ID,
			Name:          pilot.Name,
			ContractValue: money(pilot.ContractValue),
			StartDate:     formatDate(pilot.StartDate),
			Status:        string(pilot.Status),
		})
	}
	return VentureRecord{
		ID:                  v.ID,
		Name:                v.Name,
		Pod:                 v.Pod,
		Stage:               v.Stage,
		Founder:             v.Founder,
		Health:              string(v.Health),
		BurnRateMonthly:     money(v.BurnRateMonthly),
		RunwayMonths:        v.RunwayMonths,
		NPSScore:            v.NPSScore,
		PilotCustomersCount: len(pilots),
		LastUpdateText:      v.LastUpdateText,
		Description:         v.Description,
		PilotCustomers:      pilots,
	}
}

func ProjectAll(ventures []Venture) []VentureRecord {
	records := make([]VentureRecord, 0, len(ventures))
	for _, v := range ventures {
		records = append(records, Project(v))
	}
	return records
}

// ProjectRecord normalizes an already projected record. It is idempotent and
// agrees with Project for any record Project produced.
func ProjectRecord(r VentureRecord) VentureRecord {
	out := r
	out.BurnRateMonthly = money(decimal.NewFromFloat(r.BurnRateMonthly))
	out.PilotCustomers = make([]PilotCustomerRecord, 0, len(r.PilotCustomers))
	for _, pilot := range r.PilotCustomers {
		pilot.ContractValue = money(decimal.NewFromFloat(pilot.ContractValue))
		pilot.StartDate = normalizeDate(pilot.StartDate)
		out.PilotCustomers = append(out.PilotCustomers, pilot)
	}
	out.PilotCustomersCount = len(out.PilotCustomers)
	return out
}

func money(value decimal.Decimal) float64 {
	return value.Round(2).InexactFloat64()
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func normalizeDate(value string) string {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return formatDate(parsed)
}
