package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stake-plus/defcalls/src/webclient"
	"go.uber.org/zap"
)

// Config tells the service where to download from and where to cache.
type Config struct {
	MapSQLURL    string
	SnapshotPath string
	InitialDelay time.Duration
	Attempts     int
}

type coord struct{ x, y int }

// Service holds the latest village list in memory.
type Service struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger

	mu        sync.RWMutex
	byCoord   map[coord]Village
	refreshed time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a directory that has not loaded anything yet.
func NewService(cfg Config, client *http.Client, log *zap.Logger) *Service {
	if client == nil {
		client = webclient.NewDefault(2 * time.Minute)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		log:     log.Named("directory"),
		byCoord: make(map[coord]Village),
	}
}

// Name implements the actions module contract.
func (s *Service) Name() string { return "directory" }

// Start loads the cached snapshot and begins the refresh loop.
func (s *Service) Start(ctx context.Context) error {
	if err := s.LoadSnapshot(); err != nil {
		s.log.Warn("snapshot not loaded", zap.Error(err))
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.run(runCtx)
	}()
	return nil
}

// Stop ends the refresh loop.
func (s *Service) Stop(context.Context) {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// FindVillageAt returns the village at (x, y) if the map has one.
func (s *Service) FindVillageAt(x, y int) (Village, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byCoord[coord{x, y}]
	return v, ok
}

// Len reports how many villages are loaded.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCoord)
}

// Refresh downloads and parses the map dump, then swaps it in and
// rewrites the snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	if s.cfg.MapSQLURL == "" {
		return fmt.Errorf("directory: map url not configured")
	}
	body, err := webclient.Get(ctx, s.client, s.cfg.MapSQLURL, s.cfg.Attempts)
	if err != nil {
		return fmt.Errorf("directory: download map: %w", err)
	}
	villages, err := ParseMapSQL(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("directory: parse map: %w", err)
	}
	s.replace(villages)
	s.log.Info("map refreshed", zap.Int("villages", len(villages)))

	if err := s.writeSnapshot(villages); err != nil {
		s.log.Warn("snapshot write failed", zap.Error(err))
	}
	return nil
}

// LoadSnapshot restores the last downloaded map from disk.
func (s *Service) LoadSnapshot() error {
	if s.cfg.SnapshotPath == "" {
		return nil
	}
	f, err := os.Open(s.cfg.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var villages []Village
	if err := json.NewDecoder(dec).Decode(&villages); err != nil {
		return fmt.Errorf("directory: decode snapshot: %w", err)
	}
	s.replace(villages)
	s.log.Info("snapshot loaded", zap.Int("villages", len(villages)))
	return nil
}

func (s *Service) writeSnapshot(villages []Village) error {
	if s.cfg.SnapshotPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.SnapshotPath), 0o755); err != nil {
		return err
	}
	tmp := s.cfg.SnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return err
	}
	if err := json.NewEncoder(enc).Encode(villages); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.cfg.SnapshotPath)
}

func (s *Service) replace(villages []Village) {
	idx := make(map[coord]Village, len(villages))
	for _, v := range villages {
		idx[coord{v.X, v.Y}] = v
	}
	s.mu.Lock()
	s.byCoord = idx
	s.refreshed = time.Now()
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context) {
	timer := time.NewTimer(s.cfg.InitialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn("map refresh failed", zap.Error(err))
		}
		timer.Reset(untilNextMidnight(time.Now()))
	}
}

func untilNextMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}
