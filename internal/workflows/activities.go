package workflows

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
	"github.com/nishantpoudel/assettrace/internal/pkg/metrics"
)

// ScanActivities holds the activity implementations for the violation scan
// workflow. The last scan's violations are kept so PublishScanReport can run
// as a separate retryable activity without recomputing the scan.
type ScanActivities struct {
	Violations *usecases.ViolationService
	Publisher  ports.EventPublisher

	mu   sync.Mutex
	last []domain.Violation
}

// RunViolationScan computes the out-of-place assets over the trailing window.
func (a *ScanActivities) RunViolationScan(ctx context.Context) (ScanResult, error) {
	start := time.Now()
	violations, err := a.Violations.Scan(ctx)
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return ScanResult{}, fmt.Errorf("violation scan: %w", err)
	}
	metrics.ViolationsDetected.Add(float64(len(violations)))

	a.mu.Lock()
	a.last = violations
	a.mu.Unlock()

	return ScanResult{Violations: len(violations), ScannedAt: time.Now().UTC()}, nil
}

// PublishScanReport pushes the most recent scan's violations to the broker.
func (a *ScanActivities) PublishScanReport(ctx context.Context) error {
	if a.Publisher == nil {
		return nil
	}
	a.mu.Lock()
	violations := a.last
	a.mu.Unlock()
	if len(violations) == 0 {
		return nil
	}
	if err := a.Publisher.PublishViolationReport(ctx, violations); err != nil {
		return fmt.Errorf("publish violation report: %w", err)
	}
	return nil
}
