package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout bounds one CLI roundtrip to the daemon.
const DefaultTimeout = 500 * time.Millisecond

// ErrNoDaemon reports that nothing is listening on the control socket.
var ErrNoDaemon = errors.New("voce daemon is not running")

// Send performs one request/response roundtrip on path within timeout.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Forward sends command to the daemon. A missing or refusing socket is
// reported as ErrNoDaemon; a daemon-side rejection comes back as an error
// carrying the daemon's message alongside the response.
func Forward(ctx context.Context, path string, command string) (Response, error) {
	resp, err := Send(ctx, path, Request{Command: command}, DefaultTimeout)
	switch {
	case err != nil && isUnreachable(err):
		return Response{}, ErrNoDaemon
	case err != nil:
		return Response{}, fmt.Errorf("forward %s: %w", command, err)
	case !resp.OK:
		return resp, errors.New(resp.Error)
	default:
		return resp, nil
	}
}

// Probe reports whether a daemon answers on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	if err == nil {
		return true, nil
	}
	if isUnreachable(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}

func isUnreachable(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
