// Package lockfile guards a directory against concurrent runs.
//
// The lock is a small JSON file created with O_EXCL. While held, a heartbeat
// goroutine refreshes its timestamp; a lock whose heartbeat is older than
// staleTimeout belonged to a crashed process and may be taken over.
package lockfile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/util"
)

// LockFileName is the lock file created in the locked directory.
// The '~' prefix marks it as temporary.
const LockFileName = ".~pgl-gunzip.lock"

// Owner is the JSON content of the lock file.
type Owner struct {
	PID       int64     `json:"pid"`
	Hostname  string    `json:"hostname"`
	AppID     string    `json:"appID"`
	Heartbeat time.Time `json:"heartbeat"`
	// Token identifies one acquisition and resolves takeover races.
	Token string `json:"token"`
}

// ErrLockActive is returned when another live process holds the lock.
type ErrLockActive struct {
	PID       int64
	Hostname  string
	AppID     string
	TimeSince time.Duration
}

func (e *ErrLockActive) Error() string {
	return fmt.Sprintf("lock is active, held by PID %d on host '%s' (App: %s), last heartbeat %s ago", e.PID, e.Hostname, e.AppID, e.TimeSince.Truncate(time.Second))
}

// ErrLostRace is returned when another process won a stale lock takeover.
var ErrLostRace = errors.New("lost race during stale lock takeover")

// ErrCorruptLockFile indicates a lock file that stays empty or unparsable across retries.
var ErrCorruptLockFile = errors.New("lock file is corrupt or empty")

// These are vars to allow modification during testing.
var (
	heartbeatInterval = 1 * time.Minute
	staleTimeout      = 3 * heartbeatInterval
	retryDelay        = 100 * time.Millisecond
)

// Lock is a held directory lock. Release it exactly once; further calls are no-ops.
type Lock struct {
	path  string
	mu    sync.Mutex
	owner Owner
	stop  chan struct{}
	once  sync.Once
	// released is set under mu by Release; a heartbeat must not write after it.
	released bool
}

// Acquire takes the lock in dirPath. It returns *ErrLockActive if a live
// process holds it and takes over stale or corrupt locks.
func Acquire(ctx context.Context, dirPath string, appID string) (*Lock, error) {
	lockPath := filepath.Join(dirPath, LockFileName)

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l, err := create(lockPath, appID)
		if err == nil {
			return l.start(), nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to access lock file: %w", err)
		}

		current, err := readOwner(lockPath)
		switch {
		case errors.Is(err, ErrCorruptLockFile):
			plog.Warn("Found corrupt lock file, treating as stale", "path", lockPath, "error", err)
		case os.IsNotExist(err):
			// Released between our create and read; try again right away.
			continue
		case err != nil:
			time.Sleep(retryDelay)
			continue
		default:
			age := time.Since(current.Heartbeat)
			if age < staleTimeout {
				return nil, &ErrLockActive{PID: current.PID, Hostname: current.Hostname, AppID: current.AppID, TimeSince: age}
			}
			plog.Warn("Found stale lock, attempting takeover", "pid", current.PID, "age", age)
		}

		l, err = takeover(lockPath, appID)
		if err != nil {
			if errors.Is(err, ErrLostRace) {
				plog.Debug("Lock takeover race lost, retrying acquisition")
			} else {
				plog.Warn("Failed to take over lock, retrying", "error", err)
			}
			time.Sleep(retryDelay)
			continue
		}
		return l.start(), nil
	}
	return nil, fmt.Errorf("failed to acquire lock after %d attempts (contention)", maxAttempts)
}

func newOwner(appID string) (Owner, error) {
	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		return Owner{}, fmt.Errorf("failed to generate lock token: %w", err)
	}
	hostname, err := os.Hostname()
	if err != nil {
		return Owner{}, err
	}
	return Owner{
		PID:       int64(os.Getpid()),
		Hostname:  hostname,
		AppID:     appID,
		Heartbeat: time.Now().UTC(),
		Token:     hex.EncodeToString(token),
	}, nil
}

// create claims a free lock path. O_EXCL fails with os.ErrExist if the file is present.
func create(lockPath, appID string) (*Lock, error) {
	owner, err := newOwner(appID)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(owner, "", "  ")
	if err == nil {
		_, err = f.Write(data)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	return &Lock{path: lockPath, owner: owner}, nil
}

// takeover replaces a stale lock atomically and reads it back to confirm
// no other process replaced it in the meantime.
func takeover(lockPath, appID string) (*Lock, error) {
	owner, err := newOwner(appID)
	if err != nil {
		return nil, err
	}
	if err := writeOwnerAtomic(lockPath, owner); err != nil {
		return nil, err
	}

	current, err := readOwner(lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read back lock file after takeover: %w", err)
	}
	if current.PID != owner.PID || current.Token != owner.Token {
		return nil, ErrLostRace
	}
	plog.Debug("Took over stale lock", "path", lockPath)
	return &Lock{path: lockPath, owner: owner}, nil
}

// start removes leftovers of earlier heartbeats and begins refreshing the lock.
func (l *Lock) start() *Lock {
	cleanupTempLockFiles(l.path)
	l.stop = make(chan struct{})
	go l.heartbeat()
	return l
}

func (l *Lock) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.beat()
		}
	}
}

// beat refreshes the lock file. The write happens under mu so it cannot
// recreate the file after Release removed it.
func (l *Lock) beat() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.owner.Heartbeat = time.Now().UTC()
	if err := writeOwnerAtomic(l.path, l.owner); err != nil {
		plog.Warn("Heartbeat failed to update lock file", "error", err)
	}
}

// Release stops the heartbeat and removes the lock file.
func (l *Lock) Release() {
	l.once.Do(func() {
		if l.stop != nil {
			close(l.stop)
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = true
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			plog.Warn("Failed to remove lock file", "path", l.path, "error", err)
			return
		}
		plog.Debug("Lock released", "path", l.path)
	})
}

// writeOwnerAtomic writes owner to a temp file next to lockPath and renames
// it into place, so readers never observe a half-written lock.
func writeOwnerAtomic(lockPath string, owner Owner) error {
	data, err := json.MarshalIndent(owner, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock content: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(lockPath), filepath.Base(lockPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp lock file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write lock content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	// Windows refuses to rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp lock file: %w", err)
	}
	if err := os.Rename(tmpPath, lockPath); err != nil {
		return fmt.Errorf("failed to rename temp file to lock file: %w", err)
	}
	return nil
}

// readOwner reads the lock file, retrying briefly while it is empty or
// unparsable. A missing file is returned as is so callers can test os.IsNotExist.
func readOwner(lockPath string) (Owner, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		data, err := os.ReadFile(lockPath)
		if err != nil {
			if os.IsNotExist(err) {
				return Owner{}, err
			}
			return Owner{}, fmt.Errorf("failed to read lock file: %w", err)
		}

		var owner Owner
		switch {
		case len(data) == 0:
			lastErr = errors.New("lock file is empty")
		default:
			if lastErr = json.Unmarshal(data, &owner); lastErr == nil {
				return owner, nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return Owner{}, fmt.Errorf("%w: %v", ErrCorruptLockFile, lastErr)
}

// cleanupTempLockFiles removes temp files of crashed heartbeats. Only files
// older than staleTimeout are touched; younger ones may belong to a live writer.
func cleanupTempLockFiles(lockPath string) {
	pattern := filepath.Join(filepath.Dir(lockPath), filepath.Base(lockPath)+".*.tmp")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	threshold := time.Now().Add(-staleTimeout)
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.ModTime().Before(threshold) {
			continue
		}
		plog.Debug("Removing old temporary lock file", "path", match)
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			plog.Warn("Failed to remove leftover temporary lock file", "path", match, "error", err)
		}
	}
}
