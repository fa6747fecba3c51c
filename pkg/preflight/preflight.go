// Package preflight provides checks that run before an extraction begins.
// They never modify the directory being checked.
package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
)

// Validator runs the checks requested by a Plan.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Run executes the enabled checks in order and returns the first failure.
// The writability check is skipped in dry run mode since nothing is written.
func (v *Validator) Run(ctx context.Context, absDirPath string, p *Plan) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.DirectoryAccessible {
		if err := CheckDirectoryAccessible(absDirPath); err != nil {
			return err
		}
	}
	if p.DirectoryWritable {
		if p.DryRun {
			plog.Debug("[DRY RUN] Skipping writability check", "path", absDirPath)
		} else if err := CheckDirectoryWritable(absDirPath); err != nil {
			return err
		}
	}
	return nil
}

// CheckDirectoryAccessible validates that the directory exists and is a directory.
// On Windows it first verifies that the drive or network share is present, which
// gives a clearer error for a disconnected download drive.
func CheckDirectoryAccessible(absDirPath string) error {
	if !filepath.IsAbs(absDirPath) {
		return fmt.Errorf("directory must be an absolute path: %s", absDirPath)
	}
	if err := checkVolumeExists(absDirPath); err != nil {
		return err
	}

	info, err := os.Stat(absDirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory %s does not exist", absDirPath)
		}
		return fmt.Errorf("cannot stat directory %s: %w", absDirPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", absDirPath)
	}
	return nil
}

// CheckDirectoryWritable verifies that outputs can be created in the directory.
func CheckDirectoryWritable(absDirPath string) error {
	if err := checkWritable(absDirPath); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", absDirPath, err)
	}
	return nil
}
