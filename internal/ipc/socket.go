package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

var ErrAlreadyRunning = errors.New("voce daemon already running")

const socketName = "voce.sock"

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/voce.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// Acquire listens on path. A socket that answers a probe means another
// daemon owns it (ErrAlreadyRunning); a dead one is unlinked and the listen
// retried up to retries more times. An inconclusive probe never unlinks.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration, retries uint64) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	var listener net.Listener
	backoff := retry.WithMaxRetries(retries, retry.NewFibonacci(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		l, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			listener = l
			return nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, probeErr := Probe(ctx, path, probeTimeout)
		if alive {
			return ErrAlreadyRunning
		}
		if probeErr != nil {
			return fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}
		return retry.RetryableError(fmt.Errorf("socket %s was stale", path))
	})
	if err != nil {
		return nil, err
	}
	return listener, nil
}
