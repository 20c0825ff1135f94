package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ScanResult summarizes one violation scan run.
type ScanResult struct {
	Violations int       `json:"violations"`
	ScannedAt  time.Time `json:"scanned_at"`
}

// ViolationScanWorkflow runs one scheduled violation scan: compute the
// out-of-place assets over the trailing window, then publish the report to
// the broker if anything was found. The scan itself is stateless, so a
// failed run needs no compensation; the next schedule tick covers it.
func ViolationScanWorkflow(ctx workflow.Context) (ScanResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting violation scan workflow")

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var result ScanResult
	if err := workflow.ExecuteActivity(ctx, "RunViolationScan").Get(ctx, &result); err != nil {
		return ScanResult{}, err
	}

	if result.Violations > 0 {
		logger.Info("Violations found, publishing report", "count", result.Violations)
		if err := workflow.ExecuteActivity(ctx, "PublishScanReport").Get(ctx, nil); err != nil {
			// The scan result stands even if publishing fails; consumers
			// can still pull it from the REST endpoint.
			logger.Warn("publish scan report failed", "error", err)
		}
	}

	logger.Info("Violation scan finished", "violations", result.Violations)
	return result, nil
}
