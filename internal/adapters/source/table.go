// Package source reads the survey, the roster and the financial files from
// disk into in-memory tables.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/peerreview/internal/domain/ledger"
	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/internal/domain/roster"
	"github.com/okian/peerreview/internal/domain/survey"
)

// File extensions understood by the loaders.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// ReadCSV reads every record of r. The first record is returned as the
// header. Quotes are parsed leniently and rows may differ in length.
func ReadCSV(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// Sheet is one worksheet read from a workbook.
type Sheet struct {
	Name  string
	Table ledger.Table
}

// ReadWorkbook returns the Summary sheet when the workbook has one, otherwise
// its first sheet. Cell values are read unformatted so currency cells keep
// their numeric value.
func ReadWorkbook(path string) (Sheet, error) {
	f, name, err := openSheet(path)
	if err != nil {
		return Sheet{}, err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, fmt.Errorf("read sheet %q of %s: %w", name, path, err)
	}
	return Sheet{Name: name, Table: ledger.Table(rows)}, nil
}

// ReadFormWorkbook reads the first sheet of a form export or roster. Cells
// keep their raw value, so dates stay Excel serials that ParseTimestamp
// understands, except percent-formatted cells, which keep the displayed
// "70%" instead of the stored 0.7.
func ReadFormWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWorkbook, path)
	}
	name := sheets[0]

	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", name, path, err)
	}
	shown, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", name, path, err)
	}
	for r, row := range raw {
		if r >= len(shown) {
			break
		}
		for c := range row {
			if c < len(shown[r]) && strings.HasSuffix(strings.TrimSpace(shown[r][c]), "%") {
				row[c] = shown[r][c]
			}
		}
	}
	return raw, nil
}

// openSheet opens path and picks the Summary sheet, or the first sheet.
func openSheet(path string) (*excelize.File, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("open workbook %s: %w", path, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, "", fmt.Errorf("%w: %s", ErrEmptyWorkbook, path)
	}
	name := sheets[0]
	for _, s := range sheets {
		if s == ledger.SummarySheet {
			name = s
			break
		}
	}
	return f, name, nil
}

// readTable reads a CSV file, or the first sheet of an XLSX form export, as rows.
func readTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		header, rows, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if header == nil {
			return nil, nil
		}
		return append([][]string{header}, rows...), nil
	case ExtXLSX:
		return ReadFormWorkbook(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func split(all [][]string) ([]string, [][]string) {
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], all[1:]
}

// LoadSurvey reads and binds the survey export.
func LoadSurvey(path string) ([]survey.Row, error) {
	all, err := readTable(path)
	if err != nil {
		return nil, err
	}
	header, records := split(all)
	rows, err := survey.Parse(header, records)
	if err != nil {
		return nil, fmt.Errorf("survey %s: %w", path, err)
	}
	return rows, nil
}

// LoadRoster reads and binds the class roster.
func LoadRoster(path string) ([]model.RosterEntry, error) {
	all, err := readTable(path)
	if err != nil {
		return nil, err
	}
	header, records := split(all)
	entries, err := roster.Parse(header, records)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return entries, nil
}
