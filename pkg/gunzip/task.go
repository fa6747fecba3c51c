package gunzip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-gunzip/pkg/gunzipmetrics"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/util"
)

const (
	tempFilePrefix = ".pgl-gunzip-"
	tempFileSuffix = ".tmp"
)

// task holds the mutable state of a single ExtractAll call.
type task struct {
	*Extractor
	ctx        context.Context
	absDirPath string
	entries    []Entry
	plan       *Plan
	metrics    gunzipmetrics.Metrics
	result     Result
}

// execute walks the entries in order. It stops on the first failure when the
// plan is fail-fast and otherwise collects every failure.
func (t *task) execute() (Result, error) {
	if !t.plan.DryRun {
		t.cleanupStaleTempFiles()
	}

	t.result.Found = len(t.entries)
	t.metrics.AddArchivesFound(int64(len(t.entries)))
	plog.Info("Extracting archives", "count", len(t.entries), "path", t.absDirPath)

	t.metrics.StartProgress("Extraction progress", progressInterval)
	defer func() {
		t.metrics.StopProgress()
		t.metrics.LogSummary("Extraction finished")
	}()

	for _, e := range t.entries {
		if err := t.ctx.Err(); err != nil {
			plog.Debug("Cancellation received, stopping extraction.")
			return t.result, err
		}

		err := t.processEntry(e)
		if err == nil {
			continue
		}
		if ctxErr := t.ctx.Err(); ctxErr != nil {
			plog.Debug("Extraction was canceled", "archive", e.Name)
			return t.result, ctxErr
		}

		var ae *ArchiveError
		if !errors.As(err, &ae) {
			ae = &ArchiveError{Op: OpRead, Path: e.AbsPath, Err: err}
		}
		t.result.Failed++
		t.result.Failures = append(t.result.Failures, ae)
		t.metrics.AddArchivesFailed(1)

		if t.plan.FailFast {
			return t.result, ae
		}
		plog.Warn("Failed to extract archive, continuing with next", "archive", e.Name, "error", ae)
	}

	if len(t.result.Failures) > 0 {
		return t.result, joinFailures(t.result)
	}
	return t.result, nil
}

// processEntry extracts one archive and, if requested, removes its source.
func (t *task) processEntry(e Entry) error {
	if !validOutputName(e.OutputName) {
		plog.Warn("Skipping archive without a usable output name", "archive", e.Name)
		t.result.Skipped++
		t.metrics.AddArchivesSkipped(1)
		return nil
	}

	write, err := shouldWrite(e, t.plan.Overwrite)
	if err != nil {
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: err}
	}
	if !write {
		t.result.Skipped++
		t.metrics.AddArchivesSkipped(1)
		return nil
	}

	if t.plan.DryRun {
		plog.Notice("[DRY RUN] EXTRACT", "archive", e.Name, "output", e.OutputName)
		if t.plan.DeleteSource {
			return RemoveSource(e, true)
		}
		return nil
	}

	if err := t.extractEntry(e); err != nil {
		return err
	}
	t.result.Extracted++
	t.metrics.AddArchivesExtracted(1)

	if !t.plan.DeleteSource {
		return nil
	}
	if err := RemoveSource(e, false); err != nil {
		return err
	}
	t.result.Deleted++
	t.metrics.AddArchivesDeleted(1)
	return nil
}

// extractEntry inflates e into a temporary file next to it and renames the
// result over the output path. On any failure the temporary file is removed.
func (t *task) extractEntry(e Entry) error {
	plog.Notice("EXTRACT", "archive", e.Name, "output", e.OutputName)

	src, err := os.Open(e.AbsPath)
	if err != nil {
		return &ArchiveError{Op: OpRead, Path: e.AbsPath, Err: err}
	}
	defer src.Close()

	cr := &countingReader{r: src, metrics: t.metrics}
	zr, headerName, err := newDecompressor(t.plan.Decoder, cr, t.readAheadBlocks)
	if err != nil {
		return &ArchiveError{Op: OpDecompress, Path: e.AbsPath, Err: err}
	}
	defer zr.Close()
	if headerName != "" && headerName != e.OutputName {
		plog.Debug("Archive header carries a different file name", "archive", e.Name, "header_name", headerName)
	}

	outPath, err := resolveOutputPath(e.AbsOutputPath)
	if err != nil {
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: err}
	}

	// The temporary file lives next to the final path so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(outPath), tempFilePrefix+"*"+tempFileSuffix)
	if err != nil {
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: fmt.Errorf("failed to create temporary output file: %w", err)}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bufPtr := t.ioBufferPool.Get()
	defer t.ioBufferPool.Put(bufPtr)

	sr := &sourceReader{ctx: t.ctx, r: zr}
	cw := &countingWriter{w: tmp, metrics: t.metrics}
	written, err := io.CopyBuffer(cw, sr, *bufPtr)
	if err != nil {
		if ctxErr := t.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if sr.err != nil {
			return &ArchiveError{Op: OpDecompress, Path: e.AbsPath, Err: sr.err}
		}
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: err}
	}

	if err := tmp.Chmod(outputPerms(e)); err != nil {
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: fmt.Errorf("failed to set permissions on temporary output file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: fmt.Errorf("failed to close temporary output file: %w", err)}
	}
	// os.Rename replaces an existing file on POSIX and uses MOVEFILE_REPLACE_EXISTING on Windows.
	if err := os.Rename(tmpPath, outPath); err != nil {
		return &ArchiveError{Op: OpWrite, Path: e.AbsPath, Err: fmt.Errorf("failed to move output into place: %w", err)}
	}
	committed = true

	plog.Notice("EXTRACTED", "archive", e.Name, "output", e.OutputName, "bytes", written)
	return nil
}

// RemoveSource deletes the archive of an entry that was extracted successfully.
// With dryRun set it only logs what it would delete.
func RemoveSource(e Entry, dryRun bool) error {
	if dryRun {
		plog.Notice("[DRY RUN] DELETE", "archive", e.Name)
		return nil
	}
	plog.Notice("DELETE", "archive", e.Name)
	if err := os.Remove(e.AbsPath); err != nil {
		return &ArchiveError{Op: OpDelete, Path: e.AbsPath, Err: err}
	}
	return nil
}

// cleanupStaleTempFiles removes temporary outputs left behind by a crashed run.
func (t *task) cleanupStaleTempFiles() {
	dirEntries, err := os.ReadDir(t.absDirPath)
	if err != nil {
		return
	}
	for _, d := range dirEntries {
		name := d.Name()
		if !d.IsDir() && strings.HasPrefix(name, tempFilePrefix) && strings.HasSuffix(name, tempFileSuffix) {
			plog.Debug("Removing stale temporary output", "file", name)
			os.Remove(filepath.Join(t.absDirPath, name))
		}
	}
}

// outputPerms mirrors the archive's permission bits with the owner-write bit
// set, so the output of a read-only archive can be replaced by the next run.
func outputPerms(e Entry) os.FileMode {
	if e.Mode == 0 {
		return util.UserWritableFilePerms
	}
	return util.WithUserWritePermission(e.Mode)
}
