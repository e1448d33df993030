package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// LedgerFileName is the ledger file kept inside the ledger directory.
	LedgerFileName = "ledger.json"

	ledgerDirPerm  = 0o750
	ledgerFilePerm = 0o600

	ledgerLockRetry = 10 * time.Millisecond
	ledgerLockStale = 30 * time.Second
)

// ledgerState is the on-disk form of the ledger.
type ledgerState struct {
	Next      int64     `json:"next"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger is a sequence persisted to a JSON file. Every call reads the
// file, and Next rewrites it under a lock file before returning, so
// processes sharing the directory never hand out the same number and a
// restarted process continues where the last one stopped.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// OpenLedger loads the ledger in dir, creating it with start when absent.
func OpenLedger(dir string, start int64) (*Ledger, error) {
	if dir == "" {
		return nil, fmt.Errorf("ledger directory cannot be empty")
	}
	if start < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStart, start)
	}
	if err := os.MkdirAll(dir, ledgerDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create ledger directory %s: %w", dir, err)
	}

	l := &Ledger{path: filepath.Join(dir, LedgerFileName)}

	unlock, err := l.lock(context.Background())
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, err = l.load()
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := l.persist(ledgerState{Next: start, UpdatedAt: time.Now().UTC()}); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	return l, nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Peek implements Sequence.
func (l *Ledger) Peek(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return 0, err
	}
	return state.Next, nil
}

// Next implements Sequence. The number is only handed out once the
// advanced ledger is on disk.
func (l *Ledger) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	unlock, err := l.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	state, err := l.load()
	if err != nil {
		return 0, err
	}
	n := state.Next
	if err := l.persist(ledgerState{Next: n + 1, UpdatedAt: time.Now().UTC()}); err != nil {
		return 0, err
	}
	return n, nil
}

// Close implements Sequence.
func (l *Ledger) Close() error {
	return nil
}

// load reads the current state from disk. A missing file is reported as
// os.ErrNotExist.
func (l *Ledger) load() (ledgerState, error) {
	var state ledgerState

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, err
		}
		return state, fmt.Errorf("cannot read ledger %s: %w", l.path, err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("corrupt ledger %s: %w", l.path, err)
	}
	if state.Next < 1 {
		return state, fmt.Errorf("corrupt ledger %s: next number %d", l.path, state.Next)
	}
	return state, nil
}

// lock takes the ledger lock file, waiting for other holders until ctx is
// done. A lock file older than ledgerLockStale is treated as abandoned.
func (l *Ledger) lock(ctx context.Context) (func(), error) {
	lockPath := l.path + ".lock"
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, ledgerFilePerm)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("cannot lock ledger %s: %w", l.path, err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > ledgerLockStale {
			_ = os.Remove(lockPath)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cannot lock ledger %s: %w", l.path, ctx.Err())
		case <-time.After(ledgerLockRetry):
		}
	}
}

// persist writes the state through a temp file and rename.
func (l *Ledger) persist(state ledgerState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, ledgerFilePerm); err != nil {
		return fmt.Errorf("cannot write ledger %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot replace ledger %s: %w", l.path, err)
	}
	return nil
}
