package store

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FieldBurnRateMonthly     = "burn_rate_monthly"
	FieldRunwayMonths        = "runway_months"
	FieldNPSScore            = "nps_score"
	FieldPilotCustomersCount = "pilot_customers_count"
	FieldUpdatedAt           = "updated_at"
	FieldName                = "name"
	FieldPod                 = "pod"
	FieldStage               = "stage"
	FieldHealth              = "health"
	FieldFounder             = "founder"
)

// SortableFields lists the venture columns that may appear in a SortKey.
var SortableFields = []string{
	FieldBurnRateMonthly,
	FieldRunwayMonths,
	FieldNPSScore,
	FieldPilotCustomersCount,
	FieldUpdatedAt,
	FieldName,
	FieldPod,
	FieldStage,
	FieldHealth,
	FieldFounder,
}

var numericFields = map[string]bool{
	FieldBurnRateMonthly:     true,
	FieldRunwayMonths:        true,
	FieldNPSScore:            true,
	FieldPilotCustomersCount: true,
}

func IsSortable(field string) bool {
	for _, candidate := range SortableFields {
		if candidate == field {
			return true
		}
	}
	return false
}

func IsNumericField(field string) bool {
	return numericFields[field]
}

// MatchesFilter applies f to v the same way the SQL store does.
func MatchesFilter(v Venture, f VentureFilter) bool {
	if f.Name != "" && !strings.Contains(v.Name, f.Name) {
		return false
	}
	if f.Founder != "" && !strings.Contains(strings.ToLower(v.Founder), strings.ToLower(f.Founder)) {
		return false
	}
	if f.Pod != "" && v.Pod != f.Pod {
		return false
	}
	if f.Stage != "" && v.Stage != f.Stage {
		return false
	}
	if f.Health != "" && string(v.Health) != f.Health {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(v.Name), needle) && !strings.Contains(strings.ToLower(v.Founder), needle) {
			return false
		}
	}
	if f.MinRunway != nil && v.RunwayMonths < *f.MinRunway {
		return false
	}
	if f.MaxBurn != nil && v.BurnRateMonthly.GreaterThan(*f.MaxBurn) {
		return false
	}
	return true
}

// MatchesThreshold reports whether v passes t. Non-numeric fields never pass.
func MatchesThreshold(v Venture, t Threshold) bool {
	value, ok := NumericValue(v, t.Field)
	if !ok {
		return false
	}
	limit := decimal.NewFromFloat(t.Value)
	switch t.Op {
	case ThresholdGreater:
		return value.GreaterThan(limit)
	case ThresholdLess:
		return value.LessThan(limit)
	default:
		return true
	}
}

func NumericValue(v Venture, field string) (decimal.Decimal, bool) {
	switch field {
	case FieldBurnRateMonthly:
		return v.BurnRateMonthly, true
	case FieldRunwayMonths:
		return decimal.NewFromInt(int64(v.RunwayMonths)), true
	case FieldNPSScore:
		return decimal.NewFromInt(int64(v.NPSScore)), true
	case FieldPilotCustomersCount:
		return decimal.NewFromInt(int64(v.PilotCustomersCount)), true
	default:
		return decimal.Zero, false
	}
}

// CompareField orders a and b on field, returning -1, 0 or 1.
func CompareField(a, b Venture, field string) int {
	if IsNumericField(field) {
		left, _ := NumericValue(a, field)
		right, _ := NumericValue(b, field)
		return left.Cmp(right)
	}
	switch field {
	case FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case FieldName:
		return strings.Compare(a.Name, b.Name)
	case FieldPod:
		return strings.Compare(a.Pod, b.Pod)
	case FieldStage:
		return strings.Compare(a.Stage, b.Stage)
	case FieldHealth:
		return strings.Compare(string(a.Health), string(b.Health))
	case FieldFounder:
		return strings.Compare(a.Founder, b.Founder)
	default:
		return 0
	}
}
