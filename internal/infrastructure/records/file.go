package records

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

const missingVersion = "missing"

// fileVersion is the change marker of a file source: modification time plus size.
func fileVersion(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return missingVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("stat records file: %w", err)
	}
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()), nil
}

func openError(operation string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrSourceUnavailable, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// NewFileSource picks a loader by file extension.
func NewFileSource(path, sheet string, columns ColumnMap) (ports.RecordSource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return NewXLSXSource(path, sheet, columns), nil
	case ".csv":
		return NewCSVSource(path, columns), nil
	default:
		return nil, fmt.Errorf("unsupported records file extension %q", ext)
	}
}
