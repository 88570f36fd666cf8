package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestXLSXSourceLoad(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Mobile Number", "Order ID", "Customer Name", "Order Status", "Delivery Date", "Last Update"},
		{9876543210, "amz-12345", "Rahul Sharma", "Shipped", 45981, "2025-11-15"},
		{"", "FLP45678", "No Phone", "Delivered", "", ""},
		{"9123456780", "FLP45678", "", "", "", ""},
	})

	records, err := NewXLSXSource(path, "", DefaultColumnMap()).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}

	first := records[0]
	if first.MobileNumber != "9876543210" || first.OrderID != "AMZ12345" {
		t.Fatalf("unexpected identifiers: %+v", first)
	}
	if first.DeliveryDate != "2025-11-20" {
		t.Fatalf("expected date serial to be rendered, got %q", first.DeliveryDate)
	}
	if first.LastUpdate != "2025-11-15" {
		t.Fatalf("unexpected last update: %q", first.LastUpdate)
	}
	if records[1].OrderStatus != domain.UnknownOrderStatus {
		t.Fatalf("expected default status, got %q", records[1].OrderStatus)
	}
}

func TestXLSXSourceMissingFile(t *testing.T) {
	src := NewXLSXSource(filepath.Join(t.TempDir(), "absent.xlsx"), "", DefaultColumnMap())

	_, err := src.Load(context.Background())
	if !domain.IsKind(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	version, err := src.Version(context.Background())
	if err != nil || version != missingVersion {
		t.Fatalf("unexpected version %q err %v", version, err)
	}
}

func TestCSVSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	body := "\ufeffphone,order_number,name,status,delivery_date,last_updated\n" +
		"9876543210.0,AMZ 12345,Rahul Sharma,Shipped,2025-11-20,2025-11-15 10:30\n" +
		"12345,XYZ9999,Short Mobile,Processing,,\n" +
		",,,,,\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := NewCSVSource(path, DefaultColumnMap()).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].MobileNumber != "9876543210" || records[0].OrderID != "AMZ12345" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].LastUpdate != "2025-11-15 10:30" {
		t.Fatalf("unexpected last update: %q", records[0].LastUpdate)
	}
}

func TestNewFileSourceByExtension(t *testing.T) {
	if _, err := NewFileSource("orders.xlsx", "", DefaultColumnMap()); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	if _, err := NewFileSource("orders.CSV", "", DefaultColumnMap()); err != nil {
		t.Fatalf("csv: %v", err)
	}
	if _, err := NewFileSource("orders.json", "", DefaultColumnMap()); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestFormatExcelCell(t *testing.T) {
	if got := formatExcelCell(FieldDeliveryDate, "45981"); got != "2025-11-20" {
		t.Fatalf("unexpected date: %q", got)
	}
	if got := formatExcelCell(FieldLastUpdate, "45976.5"); got != "2025-11-15 12:00:00" {
		t.Fatalf("unexpected datetime: %q", got)
	}
	if got := formatExcelCell(FieldOrderStatus, "45981"); got != "45981" {
		t.Fatalf("non-date column must pass through, got %q", got)
	}
}
