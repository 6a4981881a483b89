// Package importer turns spreadsheet CSV exports into expense rows.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cnstrctnetwork/cnstrct/internal/encoding"
	"github.com/cnstrctnetwork/cnstrct/internal/money"
)

var ErrNoHeader = errors.New("no header row with date, description and amount columns")

// Row is one parsed expense line. Amount is positive cents.
type Row struct {
	Date        time.Time
	Description string
	Amount      int64
	Category    string
}

// Parse reads a CSV export, detecting its encoding, separator and column
// profile. Rows without a parseable date are skipped (titles, footers);
// rows with a date but a broken amount or description fail the whole file.
func Parse(r io.Reader) ([]Row, error) {
	utf8r, _, err := encoding.ToUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	body, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = separator(body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrNoHeader
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

// separator picks ';' or ',', whichever occurs more often in the file.
func separator(body []byte) rune {
	if bytes.Count(body, []byte(";")) > bytes.Count(body, []byte(",")) {
		return ';'
	}

	return ','
}

type colIndex map[string]int

func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]Row, error) {
	catIdx := -1
	if idx, ok := cols[p.CategoryCol]; ok && p.CategoryCol != "" {
		catIdx = idx
	}

	var out []Row

	for i, row := range rows {
		rowNum := headerRowNum + i + 1 // 1-based

		date, ok := parseDate(p, cellValue(row, cols[p.DateCol]))
		if !ok {
			continue
		}

		desc := cellValue(row, cols[p.DescCol])
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		cents, err := parseAmount(p, cellValue(row, cols[p.AmountCol]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if p.DebitsOnly {
			if cents >= 0 {
				continue
			}

			cents = -cents
		}

		if cents == 0 {
			continue
		}

		out = append(out, Row{
			Date:        date,
			Description: desc,
			Amount:      cents,
			Category:    cellValue(row, catIdx),
		})
	}

	return out, nil
}

func parseDate(p *Profile, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range p.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func parseAmount(p *Profile, s string) (int64, error) {
	if p.Decimal == decimalComma {
		return money.ParseEuropeanCents(s)
	}

	if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") && !thousandsOnly(s) {
		return money.ParseEuropeanCents(s)
	}

	return money.ParseCents(s)
}

// thousandsOnly reports whether the last comma is followed by exactly three
// digits, e.g. "1,250", which reads as a thousands separator.
func thousandsOnly(s string) bool {
	i := strings.LastIndex(s, ",")
	tail := s[i+1:]

	if len(tail) != 3 || strings.Contains(s, ".") {
		return false
	}

	for _, c := range tail {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
