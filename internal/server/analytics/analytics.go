// Package analytics computes the summary statistics and type distribution
// reported for uploaded equipment datasets.
package analytics

import "github.com/equipsense/equipsense/internal/server/models"

// Stats is the statistics block of a dataset summary: row count plus
// average, maximum and minimum of each measured parameter.
type Stats struct {
	TotalEquipment int     `json:"total_equipment"`
	AvgFlowrate    float64 `json:"avg_flowrate"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgTemperature float64 `json:"avg_temperature"`
	MaxFlowrate    float64 `json:"max_flowrate"`
	MinFlowrate    float64 `json:"min_flowrate"`
	MaxPressure    float64 `json:"max_pressure"`
	MinPressure    float64 `json:"min_pressure"`
	MaxTemperature float64 `json:"max_temperature"`
	MinTemperature float64 `json:"min_temperature"`
}

// Compute derives the summary statistics over the given rows. Averages are
// plain arithmetic means over all rows; nil or empty input yields nil
// (uploads without usable rows never reach this point).
func Compute(items []models.Equipment) *Stats {
	if len(items) == 0 {
		return nil
	}

	stats := &Stats{
		TotalEquipment: len(items),
		MaxFlowrate:    items[0].Flowrate,
		MinFlowrate:    items[0].Flowrate,
		MaxPressure:    items[0].Pressure,
		MinPressure:    items[0].Pressure,
		MaxTemperature: items[0].Temperature,
		MinTemperature: items[0].Temperature,
	}

	var sumFlowrate, sumPressure, sumTemperature float64
	for _, item := range items {
		sumFlowrate += item.Flowrate
		sumPressure += item.Pressure
		sumTemperature += item.Temperature

		stats.MaxFlowrate = max(stats.MaxFlowrate, item.Flowrate)
		stats.MinFlowrate = min(stats.MinFlowrate, item.Flowrate)
		stats.MaxPressure = max(stats.MaxPressure, item.Pressure)
		stats.MinPressure = min(stats.MinPressure, item.Pressure)
		stats.MaxTemperature = max(stats.MaxTemperature, item.Temperature)
		stats.MinTemperature = min(stats.MinTemperature, item.Temperature)
	}

	n := float64(len(items))
	stats.AvgFlowrate = sumFlowrate / n
	stats.AvgPressure = sumPressure / n
	stats.AvgTemperature = sumTemperature / n
	return stats
}

// TypeDistribution counts rows per equipment type.
func TypeDistribution(items []models.Equipment) map[string]int {
	distribution := make(map[string]int)
	for _, item := range items {
		distribution[item.Type]++
	}
	return distribution
}
