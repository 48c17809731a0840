// Package report renders dataset summaries as PDF documents: header with
// dataset info, summary statistics, type distribution and a capped
// equipment listing.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/equipsense/equipsense/internal/server/analytics"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/services"
)

// equipmentRowLimit caps the detail table so reports stay small.
const equipmentRowLimit = 50

// Letter page with 0.5 inch margins; heights in mm.
const (
	pageMargin = 12.7
	rowHeight  = 8.0
	listHeight = 6.0
)

// compressOutput is a seam for tests, which read text straight out of the
// content streams.
var compressOutput = true

// Generate renders the gathered report data into a PDF.
func Generate(data *services.ReportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCompression(compressOutput)
	pdf.AddPage()

	b := &builder{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	b.title()
	b.datasetInfo(data.Info)
	b.statistics(data.Statistics)
	b.typeDistribution(data.TypeDistribution)

	// Equipment details start on their own page.
	pdf.AddPage()
	b.equipment(data.Equipment)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error rendering report: %w", err)
	}
	return buf.Bytes(), nil
}

// builder writes the report sections. tr maps UTF-8 data strings onto the
// cp1252 range of the core fonts.
type builder struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (b *builder) title() {
	b.pdf.SetFont("Helvetica", "B", 24)
	b.pdf.SetTextColor(30, 58, 138)
	b.pdf.CellFormat(0, 14, "Chemical Equipment Parameter Report", "", 1, "C", false, 0, "")
	b.pdf.Ln(4)
}

func (b *builder) sectionHeading(text string) {
	b.pdf.SetFont("Helvetica", "B", 16)
	b.pdf.SetTextColor(37, 99, 235)
	b.pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	b.pdf.Ln(1)
}

func (b *builder) datasetInfo(info *services.DatasetInfo) {
	rows := [][2]string{
		{"Dataset:", info.Filename},
		{"Uploaded By:", info.UploadedBy},
		{"Upload Date:", info.UploadedAt.Format("2006-01-02 15:04:05")},
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
	}

	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetDrawColor(128, 128, 128)
	for _, row := range rows {
		b.pdf.SetFont("Helvetica", "B", 10)
		b.pdf.SetFillColor(224, 231, 255)
		b.pdf.CellFormat(51, rowHeight, row[0], "1", 0, "R", true, 0, "")
		b.pdf.SetFont("Helvetica", "", 10)
		b.pdf.CellFormat(102, rowHeight, b.tr(row[1]), "1", 1, "L", false, 0, "")
	}
	b.pdf.Ln(6)
}

func (b *builder) statistics(stats *analytics.Stats) {
	b.sectionHeading("Summary Statistics")
	if stats == nil {
		stats = &analytics.Stats{}
	}

	rows := [][2]string{
		{"Total Equipment", fmt.Sprintf("%d", stats.TotalEquipment)},
		{"Average Flowrate", fmt.Sprintf("%.2f", stats.AvgFlowrate)},
		{"Average Pressure", fmt.Sprintf("%.2f", stats.AvgPressure)},
		{"Average Temperature", fmt.Sprintf("%.2f", stats.AvgTemperature)},
		{"Max Flowrate", fmt.Sprintf("%.2f", stats.MaxFlowrate)},
		{"Min Flowrate", fmt.Sprintf("%.2f", stats.MinFlowrate)},
		{"Max Pressure", fmt.Sprintf("%.2f", stats.MaxPressure)},
		{"Min Pressure", fmt.Sprintf("%.2f", stats.MinPressure)},
		{"Max Temperature", fmt.Sprintf("%.2f", stats.MaxTemperature)},
		{"Min Temperature", fmt.Sprintf("%.2f", stats.MinTemperature)},
	}

	b.pdf.SetDrawColor(0, 0, 0)
	b.pdf.SetFont("Helvetica", "B", 12)
	b.pdf.SetTextColor(245, 245, 245)
	b.pdf.SetFillColor(59, 130, 246)
	b.pdf.CellFormat(76, rowHeight, "Metric", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(76, rowHeight, "Value", "1", 1, "C", true, 0, "")

	b.pdf.SetFont("Helvetica", "", 10)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetFillColor(245, 245, 220)
	for _, row := range rows {
		b.pdf.CellFormat(76, rowHeight, row[0], "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(76, rowHeight, row[1], "1", 1, "C", true, 0, "")
	}
	b.pdf.Ln(6)
}

func (b *builder) typeDistribution(dist map[string]int) {
	b.sectionHeading("Equipment Type Distribution")

	type typeCount struct {
		name  string
		count int
	}
	rows := make([]typeCount, 0, len(dist))
	total := 0
	for name, count := range dist {
		rows = append(rows, typeCount{name, count})
		total += count
	}
	// Largest groups first; names break ties so output is stable.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].name < rows[j].name
	})

	b.pdf.SetDrawColor(0, 0, 0)
	b.pdf.SetFont("Helvetica", "B", 12)
	b.pdf.SetTextColor(245, 245, 245)
	b.pdf.SetFillColor(139, 92, 246)
	b.pdf.CellFormat(76, rowHeight, "Equipment Type", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(38, rowHeight, "Count", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(38, rowHeight, "Percentage", "1", 1, "C", true, 0, "")

	b.pdf.SetFont("Helvetica", "", 10)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetFillColor(230, 230, 250)
	for _, row := range rows {
		percentage := 0.0
		if total > 0 {
			percentage = float64(row.count) / float64(total) * 100
		}
		b.pdf.CellFormat(76, rowHeight, b.tr(row.name), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(38, rowHeight, fmt.Sprintf("%d", row.count), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(38, rowHeight, fmt.Sprintf("%.1f%%", percentage), "1", 1, "C", true, 0, "")
	}
	b.pdf.Ln(6)
}

func (b *builder) equipment(items []models.Equipment) {
	b.sectionHeading("Equipment Details")

	b.pdf.SetDrawColor(0, 0, 0)
	b.pdf.SetFont("Helvetica", "B", 10)
	b.pdf.SetTextColor(245, 245, 245)
	b.pdf.SetFillColor(5, 150, 105)
	b.pdf.CellFormat(51, rowHeight, "Name", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(38, rowHeight, "Type", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(25, rowHeight, "Flowrate", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(25, rowHeight, "Pressure", "1", 0, "C", true, 0, "")
	b.pdf.CellFormat(25, rowHeight, "Temp", "1", 1, "C", true, 0, "")

	shown := items
	if len(items) > equipmentRowLimit {
		shown = items[:equipmentRowLimit]
	}

	b.pdf.SetFont("Helvetica", "", 8)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetFillColor(144, 238, 144)
	for _, item := range shown {
		b.pdf.CellFormat(51, listHeight, b.tr(truncate(item.Name, 30)), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(38, listHeight, b.tr(truncate(item.Type, 20)), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(25, listHeight, fmt.Sprintf("%.2f", item.Flowrate), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(25, listHeight, fmt.Sprintf("%.2f", item.Pressure), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(25, listHeight, fmt.Sprintf("%.2f", item.Temperature), "1", 1, "C", true, 0, "")
	}

	if len(items) > equipmentRowLimit {
		b.pdf.SetFont("Helvetica", "I", 8)
		b.pdf.CellFormat(51, listHeight, "...", "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(38, listHeight, fmt.Sprintf("(Showing %d of %d items)", equipmentRowLimit, len(items)), "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(25, listHeight, "", "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(25, listHeight, "", "1", 0, "C", true, 0, "")
		b.pdf.CellFormat(25, listHeight, "", "1", 1, "C", true, 0, "")
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
