package records

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

// Spreadsheet exports often turn numeric ids into "9876543210.0".
var floatTail = regexp.MustCompile(`^(\d+)\.0+$`)

type cellFormatter func(field Field, raw string) string

// buildRecords maps a header row plus data rows into normalized records.
// Rows without a mobile number or an order id are skipped.
func buildRecords(source string, rows [][]string, columns ColumnMap, format cellFormatter) []domain.OrderRecord {
	headerIdx := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	index := columns.Resolve(rows[headerIdx])
	if _, ok := index[FieldMobileNumber]; !ok {
		slog.Warn("records_missing_column", "source", source, "field", string(FieldMobileNumber))
		return nil
	}
	if _, ok := index[FieldOrderID]; !ok {
		slog.Warn("records_missing_column", "source", source, "field", string(FieldOrderID))
		return nil
	}

	cell := func(row []string, field Field) string {
		idx, ok := index[field]
		if !ok || idx >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[idx])
		if format != nil && v != "" {
			v = format(field, v)
		}
		return v
	}

	out := make([]domain.OrderRecord, 0, len(rows)-headerIdx-1)
	skipped := 0
	for _, row := range rows[headerIdx+1:] {
		mobile := domain.NormalizeMobile(floatTail.ReplaceAllString(cell(row, FieldMobileNumber), "$1"))
		orderID := domain.NormalizeOrderID(cell(row, FieldOrderID))
		if mobile == "" || orderID == "" {
			if !blankRow(row) {
				skipped++
			}
			continue
		}
		status := cell(row, FieldOrderStatus)
		if status == "" {
			status = domain.UnknownOrderStatus
		}
		out = append(out, domain.OrderRecord{
			MobileNumber: mobile,
			OrderID:      orderID,
			CustomerName: cell(row, FieldCustomerName),
			OrderStatus:  status,
			DeliveryDate: cell(row, FieldDeliveryDate),
			LastUpdate:   cell(row, FieldLastUpdate),
		})
	}
	if skipped > 0 {
		slog.Warn("records_rows_skipped", "source", source, "count", skipped)
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
