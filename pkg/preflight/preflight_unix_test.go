//go:build !windows

package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckDirectoryWritable_Unix(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("Skipping test: root bypasses permission checks.")
	}

	readOnly := filepath.Join(t.TempDir(), "readonly")
	if err := os.Mkdir(readOnly, 0555); err != nil {
		t.Fatalf("failed to create read-only dir: %v", err)
	}
	t.Cleanup(func() { os.Chmod(readOnly, 0755) })

	if err := CheckDirectoryWritable(readOnly); err == nil {
		t.Error("expected an error for a read-only directory, but got nil")
	}

	t.Run("Dry Run Skips Writability", func(t *testing.T) {
		p := &Plan{DirectoryAccessible: true, DirectoryWritable: true, DryRun: true}
		if err := NewValidator().Run(context.Background(), readOnly, p); err != nil {
			t.Errorf("expected dry run to skip the writability check, got: %v", err)
		}
	})
}
