// Package csvx parses and validates uploaded equipment CSV files.
package csvx

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/equipsense/equipsense/internal/common"
)

// RequiredColumns are the headers every upload must carry, in the order
// they are reported when missing. Extra columns are ignored.
var RequiredColumns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

var numericColumns = []string{"Flowrate", "Pressure", "Temperature"}

// Row is one validated equipment line of an uploaded CSV.
type Row struct {
	Name        string
	Type        string
	Flowrate    float64
	Pressure    float64
	Temperature float64
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func invalid(message string) error {
	return common.NewError(common.ErrorValidation, message)
}

// Parse decodes an uploaded CSV file. Validation failures come back as
// common.ErrorValidation errors carrying a user-facing message:
// wrong encoding, missing required columns, non-numeric parameter values,
// or no usable data rows. Rows with missing values are dropped; name and
// type cells are whitespace-trimmed.
func Parse(data []byte) ([]Row, error) {
	if !utf8.Valid(data) {
		return nil, invalid("Invalid file encoding. Please upload a valid CSV file.")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, invalid("CSV parsing error: " + err.Error())
	}
	if len(records) == 0 {
		return nil, invalid("CSV file is empty")
	}

	index := map[string]int{}
	for i, name := range records[0] {
		index[name] = i
	}
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("Missing required columns: " + strings.Join(missing, ", "))
	}

	body := records[1:]
	if len(body) == 0 {
		return nil, invalid("CSV file is empty")
	}

	// Numeric validation runs over all rows before any are dropped, so a
	// bad value is reported even when that row also has missing cells.
	// Empty cells count as missing values, not numeric errors.
	for _, col := range numericColumns {
		ci := index[col]
		for _, rec := range body {
			cell := strings.TrimSpace(rec[ci])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				return nil, invalid(fmt.Sprintf("Column '%s' must contain numeric values", col))
			}
		}
	}

	var rows []Row
	for _, rec := range body {
		if row, ok := buildRow(rec, index); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, invalid("CSV file is empty")
	}
	return rows, nil
}

// buildRow assembles a Row, reporting ok=false when any required cell
// is missing.
func buildRow(rec []string, index map[string]int) (Row, bool) {
	row := Row{
		Name: strings.TrimSpace(rec[index["Equipment Name"]]),
		Type: strings.TrimSpace(rec[index["Type"]]),
	}
	if row.Name == "" || row.Type == "" {
		return Row{}, false
	}
	for col, dst := range map[string]*float64{
		"Flowrate":    &row.Flowrate,
		"Pressure":    &row.Pressure,
		"Temperature": &row.Temperature,
	} {
		cell := strings.TrimSpace(rec[index[col]])
		if cell == "" {
			return Row{}, false
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Row{}, false
		}
		*dst = value
	}
	return row, true
}
