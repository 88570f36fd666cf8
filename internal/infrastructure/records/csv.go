package records

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

type CSVSource struct {
	path    string
	columns ColumnMap
}

func NewCSVSource(path string, columns ColumnMap) *CSVSource {
	return &CSVSource{path: path, columns: columns}
}

func (s *CSVSource) Version(context.Context) (string, error) {
	return fileVersion(s.path)
}

func (s *CSVSource) Load(context.Context) ([]domain.OrderRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, openError("open csv", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = trimBOM(rows[0][0])
	}
	return buildRecords(s.path, rows, s.columns, nil), nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
