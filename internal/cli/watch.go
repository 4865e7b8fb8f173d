package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// WatchFlows polls dir and calls onChange whenever a flow document is added,
// removed or modified. It returns when ctx is done.
func WatchFlows(ctx context.Context, dir string, interval time.Duration, logger *slog.Logger, onChange func(context.Context)) {
	if interval <= 0 {
		interval = time.Second
	}
	last := fingerprint(dir)
	logger.Info("Starting Watcher", "path", dir, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := fingerprint(dir)
			if current == last {
				continue
			}
			last = current
			// Delay slightly to ensure file system is stable
			time.Sleep(100 * time.Millisecond)
			logger.Info("Change detected, reloading flows", "path", dir)
			onChange(ctx)
		}
	}
}

func fingerprint(dir string) string {
	h := md5.New()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
		default:
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	return fmt.Sprintf("%x", h.Sum(nil))
}
