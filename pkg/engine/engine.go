// Package engine orchestrates an extraction run: preflight checks, the
// directory lock, hooks and the batch extraction itself.
package engine

import (
	"context"

	"github.com/paulschiretz/pgl-gunzip/pkg/gunzip"
	"github.com/paulschiretz/pgl-gunzip/pkg/hook"
	"github.com/paulschiretz/pgl-gunzip/pkg/preflight"
)

// Validator checks the directory before anything is touched.
type Validator interface {
	Run(ctx context.Context, absDirPath string, p *preflight.Plan) error
}

// Extractor extracts every archive in a directory.
type Extractor interface {
	ExtractAll(ctx context.Context, absDirPath string, p *gunzip.Plan) (gunzip.Result, error)
}

// HookExecutor runs the user's pre and post commands.
type HookExecutor interface {
	RunPreHook(ctx context.Context, hookName string, p *hook.Plan) error
	RunPostHook(ctx context.Context, hookName string, p *hook.Plan) error
}

// Runner holds the leaf workers an extraction run is assembled from.
type Runner struct {
	validator    Validator
	extractor    Extractor
	hookExecutor HookExecutor
}

func NewRunner(v Validator, e Extractor, h HookExecutor) *Runner {
	return &Runner{
		validator:    v,
		extractor:    e,
		hookExecutor: h,
	}
}
