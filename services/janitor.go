package services

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"

	"tutor-genai-service/internal/logger"
)

// UploadJanitor periodically removes stale files from the documents
// directory. Uploads are deleted right after ingestion on the happy path;
// the janitor catches files orphaned by crashed or abandoned loads. The
// example namespace is never touched.
type UploadJanitor struct {
	scheduler *gocron.Scheduler
	dir       string
	interval  time.Duration
	maxAge    time.Duration
}

func NewUploadJanitor(dir string, interval, maxAge time.Duration) *UploadJanitor {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &UploadJanitor{
		scheduler: gocron.NewScheduler(time.UTC),
		dir:       dir,
		interval:  interval,
		maxAge:    maxAge,
	}
}

func (j *UploadJanitor) Start() error {
	if _, err := j.scheduler.Every(j.interval).Do(j.sweep); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	logger.Info("upload janitor started", "dir", j.dir, "interval", j.interval.String(), "max_age", j.maxAge.String())
	return nil
}

func (j *UploadJanitor) Stop() {
	j.scheduler.Stop()
}

func (j *UploadJanitor) sweep() {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		logger.Warn("janitor sweep failed", "dir", j.dir, "error", err)
		return
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("janitor failed to remove stale upload", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("janitor removed stale uploads", "count", removed)
	}
}
