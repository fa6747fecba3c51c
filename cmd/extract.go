package cmd

import (
	"context"
	"os/exec"
	"time"

	"github.com/paulschiretz/pgl-gunzip/pkg/buildinfo"
	"github.com/paulschiretz/pgl-gunzip/pkg/engine"
	"github.com/paulschiretz/pgl-gunzip/pkg/gunzip"
	"github.com/paulschiretz/pgl-gunzip/pkg/hook"
	"github.com/paulschiretz/pgl-gunzip/pkg/planner"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/preflight"
)

// RunExtract handles the logic for the extract command.
func RunExtract(ctx context.Context, flagMap map[string]any) error {
	runConfig, err := loadRunConfig(flagMap)
	if err != nil {
		return err
	}

	// Set the global log level before validation so its messages are filtered too.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return err
	}

	// Log the Summary
	runConfig.LogSummary()

	// Create the runner and feed it with our leaf workers
	runner := engine.NewRunner(
		preflight.NewValidator(),
		gunzip.NewExtractor(
			runConfig.Engine.Performance.BufferSizeKB,
			runConfig.Engine.Performance.ReadAheadBlocks,
		),
		hook.NewHookExecutor(exec.CommandContext),
	)

	// Get the Plan
	extractPlan, err := planner.GenerateExtractPlan(runConfig)
	if err != nil {
		return err
	}

	// Execute the plan
	startTime := time.Now()
	err = runner.ExecuteExtract(ctx, runConfig.Directory, extractPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	plog.Info(buildinfo.Name+" finished successfully.", "duration", duration)
	return nil
}
