package store

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

type ChartPoint struct {
	Name   string  `json:"name"`
	Burn   float64 `json:"burn"`
	Runway int     `json:"runway"`
	Health string  `json:"health"`
}

// DashboardStats feeds the portfolio overview. Change fields and the burn
// trend stay zero until historical snapshots exist.
type DashboardStats struct {
	TotalBurn           float64      `json:"totalBurn"`
	AvgRunway           int          `json:"avgRunway"`
	AvgNPS              int          `json:"avgNps"`
	TotalPilotCustomers int          `json:"totalPilotCustomers"`
	BurnChange          float64      `json:"burnChange"`
	RunwayChange        float64      `json:"runwayChange"`
	NPSChange           float64      `json:"npsChange"`
	PilotsChange        float64      `json:"pilotsChange"`
	BurnTrend           []float64    `json:"burnTrend"`
	ChartData           []ChartPoint `json:"chartData"`
}

const chartLimit = 10

func Summarize(ventures []Venture) DashboardStats {
	stats := DashboardStats{BurnTrend: []float64{}, ChartData: []ChartPoint{}}
	if len(ventures) == 0 {
		return stats
	}
	totalBurn := decimal.Zero
	runwaySum, npsSum := 0, 0
	for _, v := range ventures {
		totalBurn = totalBurn.Add(v.BurnRateMonthly)
		runwaySum += v.RunwayMonths
		npsSum += v.NPSScore
		stats.TotalPilotCustomers += v.PilotCustomersCount
	}
	count := float64(len(ventures))
	stats.TotalBurn = money(totalBurn)
	stats.AvgRunway = int(math.Round(float64(runwaySum) / count))
	stats.AvgNPS = int(math.Round(float64(npsSum) / count))

	ranked := append([]Venture{}, ventures...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].BurnRateMonthly.GreaterThan(ranked[j].BurnRateMonthly)
	})
	if len(ranked) > chartLimit {
		ranked = ranked[:chartLimit]
	}
	thousand := decimal.NewFromInt(1000)
	for _, v := range ranked {
		stats.ChartData = append(stats.ChartData, ChartPoint{
			Name:   v.Name,
			Burn:   v.BurnRateMonthly.Div(thousand).InexactFloat64(),
			Runway: v.RunwayMonths,
			Health: string(v.Health),
		})
	}
	return stats
}
