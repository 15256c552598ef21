// Package sheets imports material lines from spreadsheets
package sheets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/zeptools/fieldticket/ticket"
)

const (
	maxRows = 100000
	// the header row must be among the first headerScan rows
	headerScan = 10
)

var ErrNoHeader = errors.New("no header row with quantity, description and unit cost columns")

var headerNames = map[string][]string{
	"qty":   {"qty", "quantity"},
	"desc":  {"description", "item", "part"},
	"cost":  {"unit cost", "price", "unit price"},
	"total": {"total", "line total"},
}

// ReadMaterials reads the first sheet of an .xlsx or .xls workbook
func ReadMaterials(filename string, r io.Reader) ([]ticket.MaterialLine, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	hdrAt, cols, err := findHeader(rows)
	if err != nil {
		return nil, err
	}
	var lines []ticket.MaterialLine
	for i := hdrAt + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		line, err := parseLine(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func readRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return readXLS(data)
	case ".xlsx", ".xlsm":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("no worksheet found")
		}
		return file.GetRows(sheetName)
	default:
		return nil, fmt.Errorf("unsupported spreadsheet %q: want .xlsx or .xls", filename)
	}
}

// readXLS recovers from the panics the legacy format reader raises on corrupt files
func readXLS(data []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("corrupt xls workbook: %v", r)
		}
	}()
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	if workbook.NumSheets() > 1 {
		return nil, fmt.Errorf("multiple worksheets found; materials must be on a single sheet")
	}
	return workbook.ReadAllCells(maxRows), nil
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}

func findHeader(rows [][]string) (int, map[string]int, error) {
	for i := 0; i < len(rows) && i < headerScan; i++ {
		cols := make(map[string]int)
		for idx, cell := range rows[i] {
			name := normalizeHeader(cell)
			for key, aliases := range headerNames {
				if _, taken := cols[key]; taken {
					continue
				}
				for _, alias := range aliases {
					if name == alias {
						cols[key] = idx
					}
				}
			}
		}
		_, hasQty := cols["qty"]
		_, hasDesc := cols["desc"]
		_, hasCost := cols["cost"]
		if hasQty && hasDesc && hasCost {
			return i, cols, nil
		}
	}
	return 0, nil, ErrNoHeader
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseLine(row []string, cols map[string]int) (ticket.MaterialLine, error) {
	var line ticket.MaterialLine
	var err error
	line.Description = cellValue(row, cols["desc"])
	if line.Description == "" {
		return line, errors.New("description is empty")
	}
	if line.Quantity, err = parseNumber(cellValue(row, cols["qty"])); err != nil {
		return line, fmt.Errorf("quantity: %w", err)
	}
	if line.UnitCost, err = parseNumber(cellValue(row, cols["cost"])); err != nil {
		return line, fmt.Errorf("unit cost: %w", err)
	}
	if idx, ok := cols["total"]; ok {
		if s := cellValue(row, idx); s != "" {
			total, err := parseNumber(s)
			if err != nil {
				return line, fmt.Errorf("total: %w", err)
			}
			line.LineTotal = &total
		}
	}
	return line, nil
}

// parseNumber accepts "1,234.50" and "$12" style cells. Blank is zero
func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
