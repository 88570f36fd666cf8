package records

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

// ReloadObserver is notified after every reload attempt.
type ReloadObserver interface {
	ObserveRecordsReload(count int, err error)
}

type snapshot struct {
	records  []domain.OrderRecord
	version  string
	loadedAt time.Time
}

// Store serves an immutable record snapshot. Reloads build a new snapshot and
// swap it in, so readers never see a partially loaded table.
type Store struct {
	source   ports.RecordSource
	observer ReloadObserver

	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex
}

var _ ports.RecordStore = (*Store)(nil)

func NewStore(source ports.RecordSource, observer ReloadObserver) *Store {
	s := &Store{source: source, observer: observer}
	s.current.Store(&snapshot{})
	return s
}

func (s *Store) Records() []domain.OrderRecord {
	return s.current.Load().records
}

func (s *Store) Len() int {
	return len(s.Records())
}

// Refresh reloads only when the source reports a new version.
func (s *Store) Refresh(ctx context.Context) error {
	version, err := s.source.Version(ctx)
	if err != nil {
		return fmt.Errorf("records version: %w", err)
	}
	if version != "" {
		if snap := s.current.Load(); !snap.loadedAt.IsZero() && snap.version == version {
			return nil
		}
	}
	return s.reload(ctx, version, false)
}

// Reload always reads the source. A missing source empties the store; any other
// failure keeps the previous snapshot.
func (s *Store) Reload(ctx context.Context) error {
	version, err := s.source.Version(ctx)
	if err != nil {
		version = ""
	}
	return s.reload(ctx, version, true)
}

func (s *Store) reload(ctx context.Context, version string, force bool) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	// Another caller may have loaded this version while we waited for the lock.
	if !force && version != "" {
		if snap := s.current.Load(); !snap.loadedAt.IsZero() && snap.version == version {
			return nil
		}
	}

	records, err := s.source.Load(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrSourceUnavailable) {
			slog.Warn("records_source_missing", "error", err.Error())
			s.swap(nil, version)
			s.notify(0, nil)
			return nil
		}
		slog.Warn("records_reload_failed",
			"error", err.Error(),
			"kept_records", s.Len(),
		)
		s.notify(s.Len(), err)
		return fmt.Errorf("reload records: %w", err)
	}

	s.swap(records, version)
	slog.Info("records_reloaded",
		"count", len(records),
		"version", version,
	)
	s.notify(len(records), nil)
	return nil
}

func (s *Store) swap(records []domain.OrderRecord, version string) {
	s.current.Store(&snapshot{
		records:  records,
		version:  version,
		loadedAt: time.Now(),
	})
}

func (s *Store) notify(count int, err error) {
	if s.observer != nil {
		s.observer.ObserveRecordsReload(count, err)
	}
}

// StartSchedule refreshes the store on a cron schedule until the returned stop
// function is called. Specs accept the standard five fields or descriptors like "@every 1m".
func (s *Store) StartSchedule(ctx context.Context, spec string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Refresh(ctx); err != nil {
			slog.Warn("records_scheduled_refresh_failed", "error", err.Error())
		}
	}); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	c.Start()
	return func() {
		<-c.Stop().Done()
	}, nil
}
