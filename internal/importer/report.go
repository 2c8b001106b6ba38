package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/validation"
	"github.com/tealeg/xlsx/v2"
)

type ReportFormat string

const (
	ReportCSV  ReportFormat = "csv"
	ReportXLSX ReportFormat = "xlsx"
)

var reportHeader = []string{"Row", "Field", "Message"}

func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(s) {
	case "", ReportCSV:
		return ReportCSV, nil
	case ReportXLSX:
		return ReportXLSX, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

func (f ReportFormat) ContentType() string {
	if f == ReportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f ReportFormat) FileName(batchID string) string {
	name := "import-errors"
	if batchID != "" {
		name += "-" + batchID
	}
	return name + "." + string(f)
}

// WriteReport writes one line per validation error.
func WriteReport(w io.Writer, format ReportFormat, errs []model.ValidationError) error {
	switch format {
	case ReportXLSX:
		return writeXLSXReport(w, errs)
	default:
		return writeCSVReport(w, errs)
	}
}

func writeCSVReport(w io.Writer, errs []model.ValidationError) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, e := range errs {
		if err := cw.Write([]string{strconv.Itoa(e.Row), e.Field, e.Message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSXReport(w io.Writer, errs []model.ValidationError) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Errors")
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, h := range reportHeader {
		header.AddCell().SetString(h)
	}
	for _, e := range errs {
		row := sheet.AddRow()
		row.AddCell().SetInt(e.Row)
		row.AddCell().SetString(e.Field)
		row.AddCell().SetString(e.Message)
	}
	return f.Write(w)
}

// WriteTemplate writes an empty upload workbook with the expected headers.
func WriteTemplate(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Policies")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, col := range validation.Columns {
		header.AddCell().SetString(col)
	}
	return f.Write(w)
}
