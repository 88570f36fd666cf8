package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

// Storage keeps synthesized clips as flat files under one directory.
// Clips older than ttl are treated as gone; ttl <= 0 keeps them forever.
type Storage struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time
}

var _ ports.AudioStore = (*Storage)(nil)

func New(basePath string, ttl time.Duration) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/audio"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath, ttl: ttl, now: time.Now}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	// Write to a temp file first so readers never see a partial clip.
	tmp, err := os.CreateTemp(s.basePath, ".clip-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrAudioNotFound, "open clip", err)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if s.expired(info) {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, domain.WrapError(domain.ErrAudioNotFound, "open clip", fs.ErrNotExist)
	}
	return f, nil
}

func (s *Storage) expired(info fs.FileInfo) bool {
	return s.ttl > 0 && s.now().Sub(info.ModTime()) > s.ttl
}

// Sweep deletes expired clips and returns how many were removed.
func (s *Storage) Sweep() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("read storage dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !s.expired(info) {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// StartSweep runs Sweep every interval until the returned stop function is called.
func (s *Storage) StartSweep(interval time.Duration) func() {
	if s.ttl <= 0 || interval <= 0 {
		return func() {}
	}
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		removed, err := s.Sweep()
		if err != nil {
			slog.Warn("audio_sweep_failed", "error", err.Error())
			return
		}
		if removed > 0 {
			slog.Debug("audio_sweep_done", "removed", removed)
		}
	}))
	c.Start()
	return func() {
		<-c.Stop().Done()
	}
}

func (s *Storage) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, key), nil
}

// ValidateKey rejects keys that could escape the storage directory.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return domain.WrapError(domain.ErrInvalidInput, "audio key", fmt.Errorf("invalid key %q", key))
	}
	return nil
}
