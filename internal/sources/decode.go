package sources

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
)

var zipMagic = []byte("PK\x03\x04")

// Table is a decoded spreadsheet: the header row and the data rows below it
type Table struct {
	Headers []string
	Rows    [][]string
	Format  string
}

// DecodeTable decodes a snapshot. With the auto format the name extension
// decides, then the content: zip archives are workbooks, anything else is csv.
// Leading blank rows are skipped; the first non-blank row is the header.
func DecodeTable(data []byte, format, sheet, name string) (*Table, error) {
	if format == "" || format == config.SourceFormatAuto {
		format = detectFormat(data, name)
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case config.SourceFormatXLSX:
		rows, err = readWorkbook(data, sheet)
	case config.SourceFormatCSV:
		rows, err = readCSV(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		if blank(row) {
			continue
		}
		return &Table{Headers: row, Rows: rows[i+1:], Format: format}, nil
	}
	return nil, fmt.Errorf("no header row found")
}

func detectFormat(data []byte, name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return config.SourceFormatXLSX
	case ".csv", ".txt":
		return config.SourceFormatCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return config.SourceFormatXLSX
	}
	return config.SourceFormatCSV
}

func readWorkbook(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
