package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/equipsense/equipsense/internal/client/api"
	"github.com/equipsense/equipsense/internal/filex"
)

// Upload reads a CSV file from disk and sends it to the server.
// On success it prints the parsed row count and the new dataset id.
func (a *App) Upload(ctx context.Context, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	res, err := a.api.Upload(ctx, filepath.Base(path), contents)
	if err != nil {
		printlnFn("Upload failed:", err.Error())
		return err
	}

	printlnFn(res.Message)
	if res.Dataset != nil {
		printlnFn(fmt.Sprintf("Dataset %s: %d equipment rows", res.Dataset.ID, res.Dataset.TotalEquipment))
	}
	if res.Statistics != nil {
		printStatistics(res.Statistics)
	}
	return nil
}

// Summary prints the summary statistics for a dataset. With an empty
// datasetID the server picks the user's most recent upload.
func (a *App) Summary(ctx context.Context, datasetID string) error {
	s, err := a.api.Summary(ctx, datasetID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	if s.DatasetInfo == nil {
		printlnFn(s.Error)
		return nil
	}

	printlnFn(fmt.Sprintf("Dataset %s (%s), uploaded %s by %s",
		s.DatasetInfo.ID, s.DatasetInfo.Filename,
		s.DatasetInfo.UploadedAt.Format("2006-01-02 15:04"), s.DatasetInfo.UploadedBy))
	if s.Statistics != nil {
		printStatistics(s.Statistics)
	}
	printTypeDistribution(s.TypeDistribution)
	return nil
}

// History lists the datasets the user may see, newest first.
func (a *App) History(ctx context.Context) error {
	h, err := a.api.History(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn(fmt.Sprintf("%d dataset(s)", h.Count))
	for _, d := range h.Datasets {
		printlnFn(fmt.Sprintf("%s  %s  %s  %d rows",
			d.ID, d.UploadedAt.Format("2006-01-02 15:04"), d.Filename, d.EquipmentCount))
	}
	return nil
}

// Types prints the equipment type distribution for a dataset. With an empty
// datasetID the server picks the user's most recent upload.
func (a *App) Types(ctx context.Context, datasetID string) error {
	dist, err := a.api.TypeDistribution(ctx, datasetID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	printTypeDistribution(dist)
	return nil
}

// Report downloads the PDF report for a dataset and saves it under the
// configured reports directory.
func (a *App) Report(ctx context.Context, datasetID string) error {
	name, data, err := a.api.Report(ctx, datasetID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	dir, err := filex.EnsureSubdDir(a.config.ReportsDir)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	path := filepath.Join(dir, filex.SafeFileName(name, "report.pdf"))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn("Report saved to", path)
	return nil
}

func printStatistics(s *api.Statistics) {
	printlnFn(fmt.Sprintf("Flowrate:    avg %.2f, min %.2f, max %.2f", s.AvgFlowrate, s.MinFlowrate, s.MaxFlowrate))
	printlnFn(fmt.Sprintf("Pressure:    avg %.2f, min %.2f, max %.2f", s.AvgPressure, s.MinPressure, s.MaxPressure))
	printlnFn(fmt.Sprintf("Temperature: avg %.2f, min %.2f, max %.2f", s.AvgTemperature, s.MinTemperature, s.MaxTemperature))
}

func printTypeDistribution(dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	types := make([]string, 0, len(dist))
	for t := range dist {
		types = append(types, t)
	}
	sort.Strings(types)

	printlnFn("Equipment types:")
	for _, t := range types {
		printlnFn(fmt.Sprintf("  %-20s %d", t, dist[t]))
	}
}
