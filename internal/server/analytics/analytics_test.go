package analytics

import (
	"math"
	"reflect"
	"testing"

	"github.com/equipsense/equipsense/internal/server/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeNoRows(t *testing.T) {
	t.Parallel()

	if got := Compute(nil); got != nil {
		t.Fatalf("expected nil stats for no rows, got %+v", got)
	}
	if got := Compute([]models.Equipment{}); got != nil {
		t.Fatalf("expected nil stats for empty rows, got %+v", got)
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	rows := []models.Equipment{
		{Name: "Pump A", Type: "Pump", Flowrate: 100, Pressure: 5, Temperature: 60},
		{Name: "Pump B", Type: "Pump", Flowrate: 150, Pressure: 7, Temperature: 80},
		{Name: "Valve C", Type: "Valve", Flowrate: 50, Pressure: 3, Temperature: 40},
	}

	got := Compute(rows)

	if got.TotalEquipment != 3 {
		t.Errorf("TotalEquipment = %d, want 3", got.TotalEquipment)
	}
	if !almostEqual(got.AvgFlowrate, 100) {
		t.Errorf("AvgFlowrate = %v, want 100", got.AvgFlowrate)
	}
	if !almostEqual(got.AvgPressure, 5) {
		t.Errorf("AvgPressure = %v, want 5", got.AvgPressure)
	}
	if !almostEqual(got.AvgTemperature, 60) {
		t.Errorf("AvgTemperature = %v, want 60", got.AvgTemperature)
	}
	if got.MaxFlowrate != 150 || got.MinFlowrate != 50 {
		t.Errorf("flowrate range = [%v, %v], want [50, 150]", got.MinFlowrate, got.MaxFlowrate)
	}
	if got.MaxPressure != 7 || got.MinPressure != 3 {
		t.Errorf("pressure range = [%v, %v], want [3, 7]", got.MinPressure, got.MaxPressure)
	}
	if got.MaxTemperature != 80 || got.MinTemperature != 40 {
		t.Errorf("temperature range = [%v, %v], want [40, 80]", got.MinTemperature, got.MaxTemperature)
	}
}

func TestComputeSingleRow(t *testing.T) {
	t.Parallel()

	got := Compute([]models.Equipment{
		{Name: "Reactor", Type: "Reactor", Flowrate: 42.5, Pressure: 1.5, Temperature: 250},
	})

	want := &Stats{
		TotalEquipment: 1,
		AvgFlowrate:    42.5,
		AvgPressure:    1.5,
		AvgTemperature: 250,
		MaxFlowrate:    42.5,
		MinFlowrate:    42.5,
		MaxPressure:    1.5,
		MinPressure:    1.5,
		MaxTemperature: 250,
		MinTemperature: 250,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compute() = %+v, want %+v", got, want)
	}
}

func TestComputeNegativeValues(t *testing.T) {
	t.Parallel()

	got := Compute([]models.Equipment{
		{Flowrate: -10, Pressure: -1, Temperature: -40},
		{Flowrate: 10, Pressure: 1, Temperature: 40},
	})

	if !almostEqual(got.AvgFlowrate, 0) || !almostEqual(got.AvgPressure, 0) || !almostEqual(got.AvgTemperature, 0) {
		t.Errorf("averages = %v/%v/%v, want zeros", got.AvgFlowrate, got.AvgPressure, got.AvgTemperature)
	}
	if got.MinFlowrate != -10 || got.MinPressure != -1 || got.MinTemperature != -40 {
		t.Errorf("minimums = %v/%v/%v, want -10/-1/-40", got.MinFlowrate, got.MinPressure, got.MinTemperature)
	}
}

func TestTypeDistribution(t *testing.T) {
	t.Parallel()

	rows := []models.Equipment{
		{Type: "Pump"},
		{Type: "Pump"},
		{Type: "Valve"},
		{Type: "Compressor"},
		{Type: "Pump"},
	}

	got := TypeDistribution(rows)
	want := map[string]int{"Pump": 3, "Valve": 1, "Compressor": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TypeDistribution() = %v, want %v", got, want)
	}

	if got := TypeDistribution(nil); len(got) != 0 {
		t.Errorf("TypeDistribution(nil) = %v, want empty", got)
	}
}
