package importer

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

var reportErrors = []model.ValidationError{
	{Row: 2, Field: validation.ColCustomerName, Message: "Customer Name is required"},
	{Row: 3, Field: validation.ColPolicyEndDate, Message: validation.MsgEndAfterStart},
}

func TestParseReportFormat(t *testing.T) {
	f, err := ParseReportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ReportCSV, f)

	f, err = ParseReportFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, ReportXLSX, f)
	assert.Equal(t, "import-errors-b1.xlsx", f.FileName("b1"))

	_, err = ParseReportFormat("pdf")
	assert.Error(t, err)
}

func TestWriteReport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, ReportCSV, reportErrors))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Row", "Field", "Message"},
		{"2", "Customer Name", "Customer Name is required"},
		{"3", "Policy End Date", "End date must be after start date"},
	}, records)
}

func TestWriteReport_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, ReportXLSX, reportErrors))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "Message", rows[0].Cells[2].String())

	n, err := rows[2].Cells[0].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, validation.ColPolicyEndDate, rows[2].Cells[1].String())
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	rows, err := ReadXLSX(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
