package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulschiretz/pgl-gunzip/pkg/gunzip"
	"github.com/paulschiretz/pgl-gunzip/pkg/hints"
	"github.com/paulschiretz/pgl-gunzip/pkg/lockfile"
	"github.com/paulschiretz/pgl-gunzip/pkg/planner"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
)

const hookName = "extract"

// ExecuteExtract runs a full extraction of absDirPath according to p.
//
// Post-extract hooks run even when the extraction fails; their failures are
// only logged. An active lock held by another run is not an error.
func (r *Runner) ExecuteExtract(ctx context.Context, absDirPath string, p *planner.ExtractPlan) error {
	// Check for cancellation at the very beginning.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Run Preflight Validation
	if err := r.validator.Run(ctx, absDirPath, p.Preflight); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	// Acquire Lock on the directory. A dry run writes nothing, not even the lock.
	if !p.DryRun {
		releaseLock, err := r.acquireLock(ctx, absDirPath)
		if err != nil {
			return err
		}
		if releaseLock == nil {
			return nil // Lock was already held, exit gracefully.
		}
		defer releaseLock()
	}

	// --- Pre-Extract Hooks ---
	if err := r.hookExecutor.RunPreHook(ctx, hookName, p.Hooks); err != nil && !hints.IsHint(err) {
		errMsg := "pre-extract hook failed"
		if errors.Is(err, context.Canceled) {
			errMsg = "pre-extract hook canceled"
		}
		return fmt.Errorf("%s: %w", errMsg, err)
	}

	// --- Post-Extract Hooks (deferred) ---
	defer func() {
		if err := r.hookExecutor.RunPostHook(ctx, hookName, p.Hooks); err != nil && !hints.IsHint(err) {
			if errors.Is(err, context.Canceled) {
				plog.Info("post-extract hooks skipped due to cancellation.")
			} else {
				plog.Warn("post-extract hook failed", "error", err)
			}
		}
	}()

	plog.Info("Starting extraction", "directory", absDirPath, "decoder", p.Extract.Decoder, "overwrite", p.Extract.Overwrite)

	result, err := r.extractor.ExtractAll(ctx, absDirPath, p.Extract)
	if err != nil {
		if hints.Is(err, gunzip.ErrNothingToExtract) {
			plog.Info("No archives found, nothing to extract", "directory", absDirPath)
			return nil
		}
		return fmt.Errorf("error during extract: %w", err)
	}

	plog.Info("Extraction completed",
		"found", result.Found,
		"extracted", result.Extracted,
		"skipped", result.Skipped,
		"deleted", result.Deleted,
	)
	return nil
}

// acquireLock acquires the run lock inside the directory.
// A nil release function with a nil error means another run holds the lock.
func (r *Runner) acquireLock(ctx context.Context, absDirPath string) (func(), error) {
	appID := fmt.Sprintf("pgl-gunzip:%s", absDirPath)

	plog.Debug("Attempting to acquire lock", "path", absDirPath)
	lock, err := lockfile.Acquire(ctx, absDirPath, appID)
	if err != nil {
		var lockErr *lockfile.ErrLockActive
		if errors.As(err, &lockErr) {
			plog.Warn("Extraction is already running for this directory, skipping run.", "details", lockErr.Error())
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	plog.Debug("Lock acquired successfully.")

	return lock.Release, nil
}
