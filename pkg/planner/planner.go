// Package planner turns a validated configuration into the per-component
// plans consumed by the engine.
package planner

import (
	"github.com/paulschiretz/pgl-gunzip/pkg/config"
	"github.com/paulschiretz/pgl-gunzip/pkg/gunzip"
	"github.com/paulschiretz/pgl-gunzip/pkg/hook"
	"github.com/paulschiretz/pgl-gunzip/pkg/preflight"
)

type ExtractPlan struct {
	DryRun   bool
	FailFast bool
	Metrics  bool

	BufferSizeKB    int
	ReadAheadBlocks int

	Preflight *preflight.Plan
	Extract   *gunzip.Plan
	Hooks     *hook.Plan
}

func GenerateExtractPlan(cfg config.Config) (*ExtractPlan, error) {
	// Global Flags
	dryRun := cfg.Runtime.DryRun
	failFast := cfg.Engine.FailFast
	metrics := cfg.Engine.Metrics

	// Parse values
	overwrite, err := gunzip.ParseOverwriteBehavior(cfg.Extract.Overwrite)
	if err != nil {
		return nil, err
	}
	decoder, err := gunzip.ParseDecoder(cfg.Extract.Decoder)
	if err != nil {
		return nil, err
	}

	return &ExtractPlan{
		DryRun:   dryRun,
		FailFast: failFast,
		Metrics:  metrics,

		BufferSizeKB:    cfg.Engine.Performance.BufferSizeKB,
		ReadAheadBlocks: cfg.Engine.Performance.ReadAheadBlocks,

		Preflight: &preflight.Plan{
			DirectoryAccessible: true,
			DirectoryWritable:   true,
			// Global Flags
			DryRun: dryRun,
		},
		Extract: &gunzip.Plan{
			Decoder:      decoder,
			Overwrite:    overwrite,
			DeleteSource: cfg.Extract.DeleteSource,
			// Global Flags
			DryRun:   dryRun,
			FailFast: failFast,
			Metrics:  metrics,
		},
		Hooks: &hook.Plan{
			Enabled:          len(cfg.Hooks.PreExtract) > 0 || len(cfg.Hooks.PostExtract) > 0,
			PreHookCommands:  cfg.Hooks.PreExtract,
			PostHookCommands: cfg.Hooks.PostExtract,
			// Global Flags
			DryRun: dryRun,
			// A failing pre-extract hook aborts the run.
			FailFast: true,
		},
	}, nil
}
