package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
)

func TestRun(t *testing.T) {
	var logBuf bytes.Buffer
	plog.SetOutput(&logBuf)
	t.Cleanup(func() {
		plog.SetOutput(os.Stderr)
		plog.SetLevel(plog.LevelInfo)
	})

	t.Run("Version", func(t *testing.T) {
		if err := run(context.Background(), []string{"version"}); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
	})

	t.Run("Unknown Command", func(t *testing.T) {
		if err := run(context.Background(), []string{"backup"}); err == nil {
			t.Fatal("expected error for unknown command")
		}
	})

	t.Run("Help Flag", func(t *testing.T) {
		if err := run(context.Background(), []string{"extract", "-help"}); err != nil {
			t.Fatalf("expected help to exit cleanly, got: %v", err)
		}
	})

	t.Run("Extract Empty Directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := run(context.Background(), []string{"extract", "-dir", dir}); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
	})

	t.Run("Init Then Extract", func(t *testing.T) {
		dir := t.TempDir()
		if err := run(context.Background(), []string{"init", "-dir", dir, "-fail-fast=false"}); err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "pgl-gunzip.config.json")); err != nil {
			t.Fatalf("expected config file: %v", err)
		}
		if err := run(context.Background(), []string{"extract", "-dir", dir, "-dry-run"}); err != nil {
			t.Fatalf("extract failed: %v", err)
		}
	})
}
