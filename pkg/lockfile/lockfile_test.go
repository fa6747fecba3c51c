package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulschiretz/pgl-gunzip/pkg/util"
)

// TestAcquireAndRelease verifies the basic functionality of acquiring and releasing a lock.
func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	expectedLockPath := filepath.Join(dir, LockFileName)

	// Acquire the lock
	lock, err := Acquire(context.Background(), dir, "test-app")
	if err != nil {
		t.Fatalf("expected to acquire lock, but got error: %v", err)
	}

	// Check that the lock file was created
	if _, err := os.Stat(expectedLockPath); os.IsNotExist(err) {
		t.Fatal("lock file was not created after acquiring lock")
	}

	// Release the lock
	lock.Release()

	// Check that the lock file was removed
	if _, err := os.Stat(expectedLockPath); !os.IsNotExist(err) {
		t.Fatal("lock file was not removed after releasing lock")
	}
}

// TestContention ensures that a second process cannot acquire an active lock.
func TestContention(t *testing.T) {
	dir := t.TempDir()

	// Process 1 acquires the lock
	lock1, err := Acquire(context.Background(), dir, "app-1")
	if err != nil {
		t.Fatalf("Process 1 failed to acquire lock: %v", err)
	}
	defer lock1.Release()

	// Process 2 attempts to acquire the same lock
	_, err = Acquire(context.Background(), dir, "app-2")
	if err == nil {
		t.Fatal("Process 2 unexpectedly acquired an active lock")
	}

	// Check that the error is the specific ErrLockActive type
	var lockErr *ErrLockActive
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected error of type *ErrLockActive, but got %T: %v", err, err)
	}

	if lockErr.AppID != "app-1" {
		t.Errorf("expected lock error to report AppID 'app-1', but got '%s'", lockErr.AppID)
	}
}

// TestStaleLockCleanup verifies that a stale lock can be acquired.
func TestStaleLockCleanup(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, LockFileName)

	// Manually create a stale lock file
	staleTimeVal := time.Now().Add(-(staleTimeout + time.Minute)) // Well past the stale timeout
	staleOwner := Owner{
		PID:       12345, // A fake PID from a "dead" process
		Hostname:  "stale-host",
		Heartbeat: staleTimeVal,
		Token:     "stale-token",
		AppID:     "stale-app",
	}
	data, _ := json.Marshal(staleOwner)
	if err := os.WriteFile(lockPath, data, util.UserWritableFilePerms); err != nil {
		t.Fatalf("failed to create stale lock file: %v", err)
	}

	// Attempt to acquire the stale lock
	lock, err := Acquire(context.Background(), dir, "new-app")
	if err != nil {
		t.Fatalf("failed to acquire stale lock: %v", err)
	}
	defer lock.Release()

	// Verify the new lock content
	content, err := readOwner(lockPath)
	if err != nil {
		t.Fatalf("failed to read content of newly acquired lock: %v", err)
	}

	if content.AppID != "new-app" {
		t.Errorf("expected new lock to have AppID 'new-app', but got '%s'", content.AppID)
	}
}

// TestHeartbeatEffect ensures an active lock with a heartbeat is not considered stale.
func TestHeartbeatEffect(t *testing.T) {
	// Temporarily override package-level vars for a fast test.
	originalHeartbeat := heartbeatInterval
	originalStale := staleTimeout
	heartbeatInterval = 50 * time.Millisecond
	staleTimeout = 3 * heartbeatInterval
	t.Cleanup(func() {
		heartbeatInterval = originalHeartbeat
		staleTimeout = originalStale
	})

	dir := t.TempDir()

	// Acquire the lock, which starts the heartbeat
	lock1, err := Acquire(context.Background(), dir, "app-1")
	if err != nil {
		t.Fatalf("failed to acquire initial lock: %v", err)
	}
	defer lock1.Release()

	// Wait for a period longer than one heartbeat but shorter than the stale timeout
	time.Sleep(heartbeatInterval + 25*time.Millisecond)

	// Attempt to acquire the lock again. It should fail because the heartbeat kept it fresh.
	_, err = Acquire(context.Background(), dir, "app-2")
	if err == nil {
		t.Fatal("expected lock acquisition to fail, but it succeeded")
	}

	var lockErr *ErrLockActive
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected ErrLockActive, but got %T", err)
	}
}

// TestReleaseWhileHeartbeating verifies that a heartbeat racing with Release
// never brings the lock file back.
func TestReleaseWhileHeartbeating(t *testing.T) {
	originalHeartbeat := heartbeatInterval
	heartbeatInterval = 200 * time.Microsecond
	t.Cleanup(func() { heartbeatInterval = originalHeartbeat })

	dir := t.TempDir()
	lockPath := filepath.Join(dir, LockFileName)

	for i := 0; i < 100; i++ {
		lock, err := Acquire(context.Background(), dir, "racer")
		if err != nil {
			t.Fatalf("run %d: failed to acquire lock: %v", i, err)
		}
		time.Sleep(time.Millisecond)
		lock.Release()

		// Give a late heartbeat the chance to write.
		time.Sleep(5 * time.Millisecond)
		if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
			t.Fatalf("run %d: lock file present after Release", i)
		}
	}
}

// TestReleaseIdempotency verifies that calling Release multiple times is safe.
func TestReleaseIdempotency(t *testing.T) {
	dir := t.TempDir()
	expectedLockPath := filepath.Join(dir, LockFileName)

	lock, err := Acquire(context.Background(), dir, "test-app")
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// Release multiple times
	lock.Release()
	lock.Release() // This should not panic or cause an error

	// Check that the lock file is gone
	if _, err := os.Stat(expectedLockPath); !os.IsNotExist(err) {
		t.Fatal("lock file still exists after multiple releases")
	}
}

// TestReadOwner tests the retry logic for reading a lock file.
func TestReadOwner(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	t.Run("Reads valid file", func(t *testing.T) {
		hostname, _ := os.Hostname()
		content := Owner{PID: 1, AppID: "valid", Hostname: hostname, Token: "abc"}
		data, _ := json.Marshal(content)
		if err := os.WriteFile(lockPath, data, util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write test lock file: %v", err)
		}
		readContent, err := readOwner(lockPath)
		if err != nil {
			t.Fatalf("failed to read valid content: %v", err)
		}
		if readContent.AppID != "valid" {
			t.Errorf("expected AppID 'valid', got '%s'", readContent.AppID)
		}
	})

	t.Run("Fails on persistently empty file", func(t *testing.T) {
		if err := os.WriteFile(lockPath, []byte{}, util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write empty file: %v", err)
		}
		_, err := readOwner(lockPath)
		if err == nil {
			t.Fatal("expected error reading empty file, but got nil")
		}
		if !errors.Is(err, ErrCorruptLockFile) {
			t.Errorf("expected error to be ErrCorruptLockFile, got: %v", err)
		}
	})

	t.Run("Fails on persistently corrupt file", func(t *testing.T) {
		if err := os.WriteFile(lockPath, []byte("{corrupt"), util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write corrupt file: %v", err)
		}
		_, err := readOwner(lockPath)
		if err == nil {
			t.Fatal("expected error reading corrupt file, but got nil")
		}
		if !errors.Is(err, ErrCorruptLockFile) {
			t.Errorf("expected error to be ErrCorruptLockFile, got: %v", err)
		}
	})

	t.Run("Succeeds after transient empty state", func(t *testing.T) {
		// Simulate a file being written: empty -> content
		if err := os.WriteFile(lockPath, []byte{}, util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write initial empty file: %v", err)
		}

		go func() {
			time.Sleep(20 * time.Millisecond) // Give read a chance to see the empty file
			hostname, _ := os.Hostname()
			content := Owner{PID: 2, AppID: "transient", Hostname: hostname, Token: "xyz"}
			data, _ := json.Marshal(content)
			if err := os.WriteFile(lockPath, data, util.UserWritableFilePerms); err != nil {
				// Can't t.Fatal in a goroutine, but this will cause the main test to fail.
				t.Logf("error writing final content in goroutine: %v", err)
			}
		}()

		readContent, err := readOwner(lockPath)
		if err != nil {
			t.Fatalf("failed to read transiently empty file: %v", err)
		}
		if readContent.AppID != "transient" {
			t.Errorf("expected AppID 'transient', got '%s'", readContent.AppID)
		}
	})
}

func TestCleanupTempLockFiles(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "test.lock")

	// 1. Create an old temp file that should be deleted.
	oldTempPath := filepath.Join(dir, "test.lock.123.tmp")
	if err := os.WriteFile(oldTempPath, []byte("old"), 0644); err != nil {
		t.Fatalf("failed to create old temp file: %v", err)
	}
	// Set its modification time to be older than the stale timeout.
	oldTime := time.Now().Add(-(staleTimeout + time.Minute))
	if err := os.Chtimes(oldTempPath, oldTime, oldTime); err != nil {
		t.Fatalf("failed to set mod time on old temp file: %v", err)
	}

	// 2. Create a new temp file that should NOT be deleted.
	newTempPath := filepath.Join(dir, "test.lock.456.tmp")
	if err := os.WriteFile(newTempPath, []byte("new"), 0644); err != nil {
		t.Fatalf("failed to create new temp file: %v", err)
	}

	// Act
	cleanupTempLockFiles(lockPath)

	// Assert
	if _, err := os.Stat(oldTempPath); !os.IsNotExist(err) {
		t.Error("expected old temporary file to be deleted, but it still exists")
	}
	if _, err := os.Stat(newTempPath); err != nil {
		t.Errorf("expected new temporary file to be kept, but it was deleted or an error occurred: %v", err)
	}
}

// TestCorruptLockIsTakenOver verifies that a persistently unreadable lock does not block forever.
func TestCorruptLockIsTakenOver(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(lockPath, []byte("{not json"), util.UserWritableFilePerms); err != nil {
		t.Fatalf("failed to create corrupt lock file: %v", err)
	}

	lock, err := Acquire(context.Background(), dir, "pgl-gunzip:test")
	if err != nil {
		t.Fatalf("expected to take over corrupt lock, but got: %v", err)
	}
	defer lock.Release()

	owner, err := readOwner(lockPath)
	if err != nil {
		t.Fatalf("failed to read lock after takeover: %v", err)
	}
	if owner.AppID != "pgl-gunzip:test" {
		t.Errorf("expected AppID 'pgl-gunzip:test', got '%s'", owner.AppID)
	}
}

func TestAcquireCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Acquire(ctx, t.TempDir(), "test-app"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
