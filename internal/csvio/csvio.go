// Package csvio imports and exports portfolio holdings as CSV.
//
// Imports expect a header with Symbol, Shares and Allocation columns
// (case-insensitive, extra columns ignored). Validation problems are
// collected per row rather than aborting on the first bad line, so a
// user fixing a spreadsheet sees everything wrong at once.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/prices"
)

var ErrFileTooLarge = errors.New("csvio: file exceeds maximum size")

const maxImportBytes = 1 << 20 // 1 MiB

var requiredColumns = map[string]string{
	"symbol":     "Symbol",
	"shares":     "Shares",
	"allocation": "Allocation",
}

// Row is one validated holding from an import.
type Row struct {
	Symbol        string
	Shares        decimal.Decimal
	AllocationPct decimal.Decimal
}

// Result carries the outcome of an import. Rows is usable only when
// Errors is empty; Warnings never block the import.
type Result struct {
	Rows     []Row
	Errors   []string
	Warnings []string
}

func rowError(row int, field, msg string) string {
	if field != "" {
		return fmt.Sprintf("row %d, %s: %s", row, field, msg)
	}
	return fmt.Sprintf("row %d: %s", row, msg)
}

// Import parses holdings CSV from r. A nil error with a non-empty
// Result.Errors means the content parsed but failed validation.
func Import(r io.Reader) (*Result, error) {
	limited := &io.LimitedReader{R: r, N: maxImportBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("csvio: read: %w", err)
	}
	if int64(len(data)) > maxImportBytes {
		return nil, ErrFileTooLarge
	}

	res := &Result{}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		res.Errors = append(res.Errors, "CSV file appears to be empty")
		return res, nil
	}
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("failed to parse CSV header: %v", err))
		return res, nil
	}

	colIdx := map[string]int{}
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for col, display := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, display)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		res.Errors = append(res.Errors, "missing required columns: "+strings.Join(missing, ", "))
		return res, nil
	}

	seen := map[string]bool{}
	totalAllocation := decimal.Zero
	rowNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			res.Errors = append(res.Errors, rowError(rowNum, "", err.Error()))
			continue
		}
		if isBlank(record) {
			continue
		}

		field := func(col string) string {
			i := colIdx[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		symbol := strings.ToUpper(field("symbol"))
		if symbol == "" {
			res.Errors = append(res.Errors, rowError(rowNum, "Symbol", "symbol cannot be empty"))
			continue
		}
		if err := prices.ValidateSymbol(symbol); err != nil {
			res.Errors = append(res.Errors, rowError(rowNum, "Symbol", fmt.Sprintf("invalid symbol %q", symbol)))
			continue
		}
		if seen[symbol] {
			res.Errors = append(res.Errors, rowError(rowNum, "", "duplicate symbol: "+symbol))
			continue
		}

		shares, err := decimal.NewFromString(field("shares"))
		if err != nil {
			res.Errors = append(res.Errors, rowError(rowNum, "Shares", fmt.Sprintf("invalid shares value: %q", field("shares"))))
			continue
		}
		if shares.IsNegative() {
			res.Errors = append(res.Errors, rowError(rowNum, "Shares", "shares must be non-negative"))
			continue
		}

		allocation, err := decimal.NewFromString(field("allocation"))
		if err != nil {
			res.Errors = append(res.Errors, rowError(rowNum, "Allocation", fmt.Sprintf("invalid allocation value: %q", field("allocation"))))
			continue
		}
		if !allocation.IsPositive() || allocation.GreaterThan(decimal.NewFromInt(100)) {
			res.Errors = append(res.Errors, rowError(rowNum, "Allocation", "allocation must be between 0.01 and 100"))
			continue
		}

		seen[symbol] = true
		totalAllocation = totalAllocation.Add(allocation)
		res.Rows = append(res.Rows, Row{Symbol: symbol, Shares: shares, AllocationPct: allocation})
	}

	if len(res.Rows) > 0 {
		switch {
		case totalAllocation.GreaterThan(decimal.RequireFromString("100.01")):
			res.Errors = append(res.Errors, fmt.Sprintf("total allocation is %s%%, which exceeds 100%%", totalAllocation.StringFixed(2)))
		case totalAllocation.LessThan(decimal.RequireFromString("99.99")):
			res.Warnings = append(res.Warnings, fmt.Sprintf("total allocation is %s%%, which is less than 100%%", totalAllocation.StringFixed(2)))
		}
	} else if len(res.Errors) == 0 {
		res.Errors = append(res.Errors, "no valid holding data found in CSV file")
	}

	return res, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Export writes holdings to w as CSV, sorted by symbol.
func Export(w io.Writer, holdings []model.Holding) error {
	sorted := make([]model.Holding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Symbol", "Shares", "Allocation"}); err != nil {
		return fmt.Errorf("csvio: write header: %w", err)
	}
	for _, h := range sorted {
		rec := []string{h.Symbol, h.Shares.String(), h.TargetAllocationPct.String()}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csvio: write row %s: %w", h.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SampleCSV returns an example import file shown to users in the UI.
func SampleCSV() string {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	cw.WriteAll([][]string{
		{"Symbol", "Shares", "Allocation"},
		{"AAPL", "100", "25.0"},
		{"MSFT", "80", "20.0"},
		{"GOOGL", "45", "15.0"},
		{"TSLA", "50", "10.0"},
		{"JPM", "75", "10.0"},
		{"JNJ", "60", "8.0"},
		{"VTI", "200", "7.0"},
		{"BND", "500", "5.0"},
	})
	return sb.String()
}
