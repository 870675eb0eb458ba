package watcher

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrFileNotFound is returned when the file disappears while waiting.
var ErrFileNotFound = errors.New("file not found")

// ErrFileUnstable is returned when the file keeps changing past the timeout.
var ErrFileUnstable = errors.New("file did not stabilize within timeout")

// StabilityChecker waits until a file's size stops changing, so files that
// are still being written are not moved.
type StabilityChecker struct {
	threshold time.Duration
	timeout   time.Duration
	interval  time.Duration
}

// NewStabilityChecker creates a checker that requires the size to stay
// unchanged for threshold, polling at threshold/4 (at least 50ms) and giving
// up after 30 seconds.
func NewStabilityChecker(threshold time.Duration) *StabilityChecker {
	interval := threshold / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return NewStabilityCheckerWithOptions(threshold, 30*time.Second, interval)
}

// NewStabilityCheckerWithOptions creates a checker with explicit timings.
func NewStabilityCheckerWithOptions(threshold, timeout, interval time.Duration) *StabilityChecker {
	return &StabilityChecker{
		threshold: threshold,
		timeout:   timeout,
		interval:  interval,
	}
}

// WaitForStable blocks until the size of path has been unchanged for the
// threshold and returns its final FileInfo. A zero threshold returns after a
// single stat.
func (s *StabilityChecker) WaitForStable(ctx context.Context, path string) (os.FileInfo, error) {
	info, err := statFile(path)
	if err != nil || s.threshold <= 0 {
		return info, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lastChange := time.Now()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrFileUnstable
			}
			return nil, ctx.Err()
		case <-ticker.C:
			current, err := statFile(path)
			if err != nil {
				return nil, err
			}
			if current.Size() != info.Size() || !current.ModTime().Equal(info.ModTime()) {
				info = current
				lastChange = time.Now()
			} else if time.Since(lastChange) >= s.threshold {
				return current, nil
			}
		}
	}
}

func statFile(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return info, nil
}

// Threshold returns the configured stability threshold.
func (s *StabilityChecker) Threshold() time.Duration {
	return s.threshold
}
