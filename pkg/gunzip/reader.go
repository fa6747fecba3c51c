package gunzip

import (
	"context"
	"io"

	"github.com/paulschiretz/pgl-gunzip/pkg/gunzipmetrics"
)

// countingReader counts compressed bytes read from the archive.
type countingReader struct {
	r       io.Reader
	metrics gunzipmetrics.Metrics
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.metrics.AddBytesRead(int64(n))
	}
	return n, err
}

// sourceReader aborts the copy once ctx is done and records errors coming
// from the decompressor, which tells a failed copy's read side from its write side.
type sourceReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (sr *sourceReader) Read(p []byte) (int, error) {
	if err := sr.ctx.Err(); err != nil {
		sr.err = err
		return 0, err
	}
	n, err := sr.r.Read(p)
	if err != nil && err != io.EOF {
		sr.err = err
	}
	return n, err
}

// countingWriter counts decompressed bytes. It must not implement
// io.ReaderFrom, or io.CopyBuffer would bypass the pooled buffer.
type countingWriter struct {
	w       io.Writer
	metrics gunzipmetrics.Metrics
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.metrics.AddBytesWritten(int64(n))
	}
	return n, err
}
