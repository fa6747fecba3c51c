// Package gunzip implements the batch extractor: every "*.gz" file directly
// inside a directory is inflated into a sibling file named after the archive
// minus its last extension, and the archive is optionally deleted afterwards.
//
// Archives are processed one at a time in directory order. Each output is
// written to a temporary file and renamed into place, so a failed archive
// never leaves a partial output behind. Deletion of the source is a separate
// step that only runs after the archive was extracted successfully.
package gunzip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulschiretz/pgl-gunzip/pkg/gunzipmetrics"
	"github.com/paulschiretz/pgl-gunzip/pkg/hints"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/pool"
)

// ErrNothingToExtract is returned when the directory holds no archives.
var ErrNothingToExtract = hints.New("nothing to extract")

// Op names the stage of an archive's lifecycle that failed.
type Op string

const (
	OpRead       Op = "read"
	OpDecompress Op = "decompress"
	OpWrite      Op = "write"
	OpDelete     Op = "delete"
)

// ArchiveError records which archive failed and in which stage.
type ArchiveError struct {
	Op   Op
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Result summarizes one ExtractAll run.
type Result struct {
	Found     int
	Extracted int
	Skipped   int
	Failed    int
	Deleted   int
	Failures  []*ArchiveError
}

// Extractor is stateless between runs; per-run state lives in a task.
type Extractor struct {
	ioBufferPool    *pool.BufferPool
	readAheadBlocks int
}

// MaxBufferSizeKB caps the copy buffer at 64 MiB.
const MaxBufferSizeKB = 64 * 1024

// NewExtractor creates an Extractor with a copy buffer of bufferSizeKB and
// readAheadBlocks pgzip blocks of read-ahead. Out of range values are clamped.
func NewExtractor(bufferSizeKB, readAheadBlocks int) *Extractor {
	bufferSizeKB = min(max(bufferSizeKB, 1), MaxBufferSizeKB)
	if readAheadBlocks < 1 {
		readAheadBlocks = 1
	}
	return &Extractor{
		ioBufferPool:    pool.NewBufferPool(bufferSizeKB * 1024),
		readAheadBlocks: readAheadBlocks,
	}
}

// ExtractAll extracts every archive directly inside absDirPath.
//
// With p.FailFast the first failure stops the batch and is returned; outputs
// already written stay in place and later archives are left untouched.
// Without it every archive is attempted and all failures are returned joined.
// A directory without archives yields ErrNothingToExtract.
func (e *Extractor) ExtractAll(ctx context.Context, absDirPath string, p *Plan) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	entries, err := Scan(absDirPath)
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		if p.DryRun {
			plog.Debug("[DRY RUN] No archives to extract", "path", absDirPath)
		} else {
			plog.Debug("No archives to extract", "path", absDirPath)
		}
		return Result{}, ErrNothingToExtract
	}

	var m gunzipmetrics.Metrics
	if p.Metrics {
		m = &gunzipmetrics.ExtractionMetrics{}
	} else {
		m = &gunzipmetrics.NoopMetrics{}
	}

	t := &task{
		Extractor:  e,
		ctx:        ctx,
		absDirPath: absDirPath,
		entries:    entries,
		plan:       p,
		metrics:    m,
	}
	return t.execute()
}

// joinFailures folds the collected failures into one error.
func joinFailures(r Result) error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return fmt.Errorf("%d of %d archives failed: %w", r.Failed, r.Found, errors.Join(errs...))
}

// progressInterval is how often a long run logs intermediate metrics.
var progressInterval = 10 * time.Second
