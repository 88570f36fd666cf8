package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*OrderRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &OrderRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestLoadNormalizesRowsAndSkipsIncomplete(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"mobile_number", "order_id", "customer_name", "order_status", "delivery_date", "last_update"}).
		AddRow("98765 43210", "amz-12345", "Rahul Sharma", "Shipped", "2025-11-20", "2025-11-15").
		AddRow("", "FLP45678", "No Phone", "Delivered", "", "").
		AddRow("9123456780", "flp45678", "", "", "", "")
	mock.ExpectQuery("SELECT mobile_number, order_id, customer_name").WillReturnRows(rows)

	records, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].MobileNumber != "9876543210" || records[0].OrderID != "AMZ12345" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].OrderStatus != domain.UnknownOrderStatus {
		t.Fatalf("expected default status, got %q", records[1].OrderStatus)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadReportsSourceUnavailable(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT mobile_number, order_id, customer_name").
		WillReturnError(errors.New("relation \"orders\" does not exist"))

	_, err := repo.Load(context.Background())
	if !domain.IsKind(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVersionCombinesCountAndLatestUpdate(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	updated := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\), MAX\(updated_at\) FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(int64(3), updated))
	mock.ExpectQuery(`SELECT COUNT\(\*\), MAX\(updated_at\) FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(int64(0), nil))

	v1, err := repo.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v1 == "" {
		t.Fatalf("expected non-empty version")
	}
	v2, err := repo.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v2 != "0:0" {
		t.Fatalf("unexpected empty-table version %q", v2)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertNormalizesIdentifiers(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO orders").
		WithArgs("9876543210", "AMZ12345", "Rahul Sharma", "Shipped", "2025-11-20", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), domain.OrderRecord{
		MobileNumber: "98765-43210",
		OrderID:      "amz 12345",
		CustomerName: "Rahul Sharma",
		OrderStatus:  "Shipped",
		DeliveryDate: "2025-11-20",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(int64(2025111501)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceAllRewritesTableInTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("9876543210", "AMZ12345", "Rahul Sharma", "Shipped", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("9123456780", "FLP45678", "", domain.UnknownOrderStatus, "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := repo.ReplaceAll(context.Background(), []domain.OrderRecord{
		{MobileNumber: "9876543210", OrderID: "AMZ12345", CustomerName: "Rahul Sharma", OrderStatus: "Shipped"},
		{MobileNumber: "9123456780", OrderID: "flp45678"},
	})
	if err != nil {
		t.Fatalf("replace all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows written, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO orders").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	if _, err := repo.ReplaceAll(context.Background(), []domain.OrderRecord{{MobileNumber: "9876543210", OrderID: "AMZ12345"}}); err == nil {
		t.Fatalf("expected replace error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
