package records

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

type XLSXSource struct {
	path    string
	sheet   string
	columns ColumnMap
}

// NewXLSXSource reads the named sheet, or the first one when sheet is empty.
func NewXLSXSource(path, sheet string, columns ColumnMap) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet, columns: columns}
}

func (s *XLSXSource) Version(context.Context) (string, error) {
	return fileVersion(s.path)
}

func (s *XLSXSource) Load(context.Context) ([]domain.OrderRecord, error) {
	f, err := excelize.OpenFile(s.path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, openError("open workbook", err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", s.path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return buildRecords(s.path, rows, s.columns, formatExcelCell), nil
}

// formatExcelCell renders date serials in date columns; other cells pass through.
func formatExcelCell(field Field, raw string) string {
	if !isDateField(field) {
		return raw
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
