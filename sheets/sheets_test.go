package sheets

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadMaterialsXLSX(t *testing.T) {
	data := workbook(t, [][]any{
		{"Job 4471 materials"},
		{},
		{"Part", "Qty", "Unit Price", "Total"},
		{"Smoke detector", 2, 10, ""},
		{},
		{"Relay", "1", "$5.50", "5.50"},
		{"Wire 18/2 (ft)", 250, "0.12", "$30.00"},
	})
	lines, err := ReadMaterials("materials.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, "Smoke detector", lines[0].Description)
	assert.Equal(t, 2.0, lines[0].Quantity)
	assert.Equal(t, 10.0, lines[0].UnitCost)
	assert.Nil(t, lines[0].LineTotal)

	assert.Equal(t, 5.5, lines[1].UnitCost)
	require.NotNil(t, lines[2].LineTotal)
	assert.Equal(t, 30.0, *lines[2].LineTotal)
	assert.Equal(t, 30.0, lines[2].Total())
}

func TestReadMaterialsRowError(t *testing.T) {
	data := workbook(t, [][]any{
		{"Quantity", "Description", "Unit Cost"},
		{1, "Relay", 5},
		{"two", "Detector", 10},
	})
	_, err := ReadMaterials("m.xlsx", bytes.NewReader(data))
	assert.ErrorContains(t, err, "row 3: quantity")
}

func TestReadMaterialsNoHeader(t *testing.T) {
	data := workbook(t, [][]any{{"Name", "Amount"}, {"Relay", 5}})
	_, err := ReadMaterials("m.xlsx", bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadMaterialsUnsupported(t *testing.T) {
	_, err := ReadMaterials("m.csv", strings.NewReader("qty,description"))
	assert.ErrorContains(t, err, "unsupported spreadsheet")

	_, err = ReadMaterials("m.xls", strings.NewReader("not a workbook"))
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("$1,234.50")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v)
	v, err = parseNumber("")
	require.NoError(t, err)
	assert.Zero(t, v)
	_, err = parseNumber("n/a")
	assert.Error(t, err)
}
