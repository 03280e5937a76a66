package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler evicts old files from the upload cache
type Scheduler struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	exclude  map[string]bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// sqliteSidecars are the files sqlite keeps next to a database
var sqliteSidecars = []string{"", "-wal", "-shm", "-journal"}

// NewScheduler creates a new cleanup scheduler. A non-positive maxAge
// disables eviction.
func NewScheduler(dir string, interval, maxAge time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		exclude:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}
}

// ExcludeDatabase keeps a sqlite database living in the cache directory,
// together with its journal files, out of eviction. Call before Start.
func (s *Scheduler) ExcludeDatabase(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	for _, suffix := range sqliteSidecars {
		s.exclude[abs+suffix] = true
	}
}

func (s *Scheduler) excluded(path string) bool {
	if len(s.exclude) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return s.exclude[abs]
}

// Start runs one pass immediately, then one per interval until Stop
func (s *Scheduler) Start() {
	if s.maxAge <= 0 {
		log.WithField("dir", s.dir).Info("Cache eviction disabled")
		return
	}

	log.Info("Running initial cache cleanup...")
	s.CleanOnce(time.Now())

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case now := <-ticker.C:
				s.CleanOnce(now)
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.WithFields(log.Fields{
		"interval": s.interval,
		"max_age":  s.maxAge,
	}).Info("Cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Info("Cleanup scheduler stopped")
	})
}

// CleanOnce removes files older than the max age relative to now and returns
// how many were deleted.
func (s *Scheduler) CleanOnce(now time.Time) int {
	var (
		deletedCount int
		deletedSize  int64
	)

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() || s.excluded(path) {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}

		size := info.Size()
		if err := os.Remove(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("Failed to delete old cache file")
			return nil
		}
		deletedCount++
		deletedSize += size
		log.WithFields(log.Fields{
			"file": filepath.Base(path),
			"age":  age.Round(time.Minute),
			"kb":   size / 1024,
		}).Debug("Deleted old cache file")
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Error during cleanup")
	}

	if deletedCount > 0 {
		log.Infof("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}
