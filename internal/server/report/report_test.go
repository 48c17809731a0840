package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/equipsense/equipsense/internal/server/analytics"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/services"
)

// uncompressedOutput turns stream compression off so assertions can search
// the rendered text. Tests using it must not run in parallel.
func uncompressedOutput(t *testing.T) {
	t.Helper()
	orig := compressOutput
	compressOutput = false
	t.Cleanup(func() { compressOutput = orig })
}

func sampleData() *services.ReportData {
	return &services.ReportData{
		Info: &services.DatasetInfo{
			ID:         "ds1",
			Filename:   "plant_data.csv",
			UploadedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
			UploadedBy: "alice",
		},
		Statistics: &analytics.Stats{
			TotalEquipment: 2,
			AvgFlowrate:    105.2,
			AvgPressure:    10.35,
			AvgTemperature: 71.75,
			MaxFlowrate:    120.5,
			MinFlowrate:    89.9,
			MaxPressure:    12.5,
			MinPressure:    8.2,
			MaxTemperature: 78.5,
			MinTemperature: 65,
		},
		TypeDistribution: map[string]int{"Pump": 1, "Compressor": 1},
		Equipment: []models.Equipment{
			{ID: 1, DatasetID: "ds1", Name: "Pump A", Type: "Pump", Flowrate: 120.5, Pressure: 8.2, Temperature: 65},
			{ID: 2, DatasetID: "ds1", Name: "Compressor B", Type: "Compressor", Flowrate: 89.9, Pressure: 12.5, Temperature: 78.5},
		},
	}
}

func generateText(t *testing.T, data *services.ReportData) []byte {
	t.Helper()
	out, err := Generate(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func assertContains(t *testing.T, out []byte, want string) {
	t.Helper()
	if !bytes.Contains(out, []byte(want)) {
		t.Errorf("report should contain %q", want)
	}
}

func TestGenerate_ProducesPDF(t *testing.T) {
	out := generateText(t, sampleData())

	if !bytes.HasPrefix(out, []byte("%PDF-1.")) {
		t.Errorf("output should start with a PDF header, got %q", out[:min(16, len(out))])
	}
	if !bytes.Contains(out, []byte("%%EOF")) {
		t.Error("output should carry the PDF trailer")
	}
}

func TestGenerate_Sections(t *testing.T) {
	uncompressedOutput(t)

	out := generateText(t, sampleData())

	for _, want := range []string{
		"Chemical Equipment Parameter Report",
		"Summary Statistics",
		"Equipment Type Distribution",
		"Equipment Details",
		"plant_data.csv",
		"alice",
		"2025-06-01 12:30:00",
		"Generated:",
		"Total Equipment",
		"105.20",
		"120.50",
		"50.0%",
		"Pump A",
		"Compressor B",
	} {
		assertContains(t, out, want)
	}
}

func TestGenerate_TypeDistributionLargestFirst(t *testing.T) {
	uncompressedOutput(t)

	data := sampleData()
	data.TypeDistribution = map[string]int{"Pump": 1, "Valve": 3}
	data.Equipment = nil

	out := generateText(t, data)

	assertContains(t, out, "75.0%")
	assertContains(t, out, "25.0%")
	valve := bytes.Index(out, []byte("Valve"))
	pump := bytes.Index(out, []byte("Pump"))
	if valve == -1 || pump == -1 {
		t.Fatal("both type rows should be rendered")
	}
	if valve > pump {
		t.Error("types should be listed largest group first")
	}
}

func TestGenerate_CapsEquipmentRows(t *testing.T) {
	uncompressedOutput(t)

	data := sampleData()
	data.Equipment = nil
	for i := 1; i <= 60; i++ {
		data.Equipment = append(data.Equipment, models.Equipment{
			Name: fmt.Sprintf("Unit-%03d", i),
			Type: "Pump",
		})
	}

	out := generateText(t, data)

	assertContains(t, out, "Unit-050")
	if bytes.Contains(out, []byte("Unit-051")) {
		t.Error("rows past the cap should not be rendered")
	}
	assertContains(t, out, "Showing 50 of 60 items")
}

func TestGenerate_TruncatesLongNames(t *testing.T) {
	uncompressedOutput(t)

	long := strings.Repeat("a", 29) + "bcdefg"
	data := sampleData()
	data.Equipment = []models.Equipment{{Name: long, Type: "Pump"}}

	out := generateText(t, data)

	assertContains(t, out, long[:30])
	if bytes.Contains(out, []byte(long[:31])) {
		t.Error("names should be cut at 30 characters")
	}
}

func TestGenerate_NilStatisticsRendersZeros(t *testing.T) {
	uncompressedOutput(t)

	data := sampleData()
	data.Statistics = nil

	out := generateText(t, data)

	assertContains(t, out, "Total Equipment")
	assertContains(t, out, "0.00")
}
