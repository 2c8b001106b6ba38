package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nimasrn/policy-desk/internal/validation"
	"github.com/tealeg/xlsx/v2"
)

var (
	ErrNoSheet        = errors.New("workbook has no sheets")
	ErrMissingHeader  = errors.New("sheet has no header row")
	ErrMissingColumns = errors.New("sheet is missing required columns")
)

const utf8BOM = "\ufeff"

// RequiredColumns must appear in the header row of every upload.
var RequiredColumns = []string{
	validation.ColCustomerName,
	validation.ColInsuranceType,
	validation.ColInsuranceCompany,
	validation.ColPolicyNumber,
	validation.ColPolicyStartDate,
	validation.ColPolicyEndDate,
}

// ReadXLSX reads the first sheet of an .xlsx workbook. The first row is the
// header; numeric cells keep their float value so date serials survive.
func ReadXLSX(data []byte) ([]validation.Row, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	if len(f.Sheets) == 0 {
		return nil, ErrNoSheet
	}

	var records [][]any
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			records = append(records, nil)
			continue
		}
		record := make([]any, len(row.Cells))
		for i, cell := range row.Cells {
			record[i] = cellValue(cell)
		}
		records = append(records, record)
	}
	return toRows(records)
}

func cellValue(cell *xlsx.Cell) any {
	if cell == nil {
		return nil
	}
	if cell.Type() == xlsx.CellTypeNumeric {
		if f, err := cell.Float(); err == nil {
			return f
		}
	}
	return cell.String()
}

// ReadCSV reads a comma separated export with a header row.
func ReadCSV(r io.Reader) ([]validation.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]any
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}
		record := make([]any, len(rec))
		for i, v := range rec {
			record[i] = v
		}
		records = append(records, record)
	}
	return toRows(records)
}

// toRows keys every data record by the header. Trailing blank records are
// dropped; blank records in the middle are kept so row numbers still match
// the file.
func toRows(records [][]any) ([]validation.Row, error) {
	if len(records) == 0 || isBlankRecord(records[0]) {
		return nil, ErrMissingHeader
	}

	header := make([]string, len(records[0]))
	present := make(map[string]bool, len(header))
	for i, h := range records[0] {
		// spreadsheet CSV exports often lead with a UTF-8 byte order mark
		header[i] = strings.TrimSpace(strings.TrimPrefix(fmt.Sprint(valueOrEmpty(h)), utf8BOM))
		present[strings.ToLower(header[i])] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[strings.ToLower(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	data := records[1:]
	for len(data) > 0 && isBlankRecord(data[len(data)-1]) {
		data = data[:len(data)-1]
	}

	rows := make([]validation.Row, 0, len(data))
	for _, record := range data {
		cells := make(map[string]any, len(header))
		for i, h := range header {
			if h == "" || i >= len(record) {
				continue
			}
			cells[h] = record[i]
		}
		rows = append(rows, validation.RowFromCells(cells))
	}
	return rows, nil
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func isBlankRecord(record []any) bool {
	for _, v := range record {
		switch val := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(val) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
