package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

// OrderRepository reads the order table as a record source.
type OrderRepository struct {
	db *sql.DB
}

var _ ports.RecordSource = (*OrderRepository)(nil)

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *OrderRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/mcp startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025111501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS orders (
	id BIGSERIAL PRIMARY KEY,
	mobile_number TEXT NOT NULL,
	order_id TEXT NOT NULL,
	customer_name TEXT NOT NULL DEFAULT '',
	order_status TEXT NOT NULL DEFAULT 'Unknown',
	delivery_date TEXT NOT NULL DEFAULT '',
	last_update TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_orders_lookup ON orders(mobile_number, order_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Version changes whenever a row is added, removed or touched.
func (r *OrderRepository) Version(ctx context.Context) (string, error) {
	var (
		count     int64
		updatedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(updated_at) FROM orders`).Scan(&count, &updatedAt)
	if err != nil {
		return "", domain.WrapError(domain.ErrSourceUnavailable, "orders version", err)
	}
	if !updatedAt.Valid {
		return fmt.Sprintf("%d:0", count), nil
	}
	return fmt.Sprintf("%d:%d", count, updatedAt.Time.UnixNano()), nil
}

func (r *OrderRepository) Load(ctx context.Context) ([]domain.OrderRecord, error) {
	const query = `
SELECT mobile_number, order_id, customer_name, order_status, delivery_date, last_update
FROM orders
ORDER BY id ASC
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSourceUnavailable, "query orders", err)
	}
	defer rows.Close()

	out := make([]domain.OrderRecord, 0)
	for rows.Next() {
		var rec domain.OrderRecord
		if err := rows.Scan(
			&rec.MobileNumber,
			&rec.OrderID,
			&rec.CustomerName,
			&rec.OrderStatus,
			&rec.DeliveryDate,
			&rec.LastUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		rec.MobileNumber = domain.NormalizeMobile(rec.MobileNumber)
		rec.OrderID = domain.NormalizeOrderID(rec.OrderID)
		if rec.MobileNumber == "" || rec.OrderID == "" {
			continue
		}
		if strings.TrimSpace(rec.OrderStatus) == "" {
			rec.OrderStatus = domain.UnknownOrderStatus
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertOrderQuery = `
INSERT INTO orders (mobile_number, order_id, customer_name, order_status, delivery_date, last_update, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Insert appends one record.
func (r *OrderRepository) Insert(ctx context.Context, rec domain.OrderRecord) error {
	return insertOrder(ctx, r.db, rec, time.Now().UTC())
}

// ReplaceAll swaps the whole table for records in one transaction and returns
// the number of rows written.
func (r *OrderRepository) ReplaceAll(ctx context.Context, records []domain.OrderRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return 0, fmt.Errorf("clear orders: %w", err)
	}
	now := time.Now().UTC()
	for _, rec := range records {
		if err := insertOrder(ctx, tx, rec, now); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace tx: %w", err)
	}
	return len(records), nil
}

func insertOrder(ctx context.Context, db execer, rec domain.OrderRecord, updatedAt time.Time) error {
	status := rec.OrderStatus
	if strings.TrimSpace(status) == "" {
		status = domain.UnknownOrderStatus
	}
	_, err := db.ExecContext(ctx, insertOrderQuery,
		domain.NormalizeMobile(rec.MobileNumber),
		domain.NormalizeOrderID(rec.OrderID),
		rec.CustomerName,
		status,
		rec.DeliveryDate,
		rec.LastUpdate,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", rec.OrderID, err)
	}
	return nil
}
