package output

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voce/internal/proc"
	"github.com/sethvargo/go-retry"
)

// errPassthrough lets a handle func defer to the default tool behavior.
var errPassthrough = errors.New("passthrough")

// fakeRunner emulates installed desktop tools. Binaries listed in bins
// resolve; clipboard tools share an in-memory selection unless handle
// answers first.
type fakeRunner struct {
	bins   map[string]bool
	handle func(cmd proc.Command, stdin string) (proc.Result, error)

	mu        sync.Mutex
	calls     []string
	clipboard string
}

func newFakeRunner(bins ...string) *fakeRunner {
	f := &fakeRunner{bins: map[string]bool{}}
	for _, b := range bins {
		f.bins[b] = true
	}
	return f
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.bins[name] {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Run(_ context.Context, cmd proc.Command) (proc.Result, error) {
	var stdin string
	if cmd.Stdin != nil {
		data, _ := io.ReadAll(cmd.Stdin)
		stdin = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd.String())
	f.mu.Unlock()

	if f.handle != nil {
		if res, err := f.handle(cmd, stdin); !errors.Is(err, errPassthrough) {
			return res, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch cmd.Name {
	case "wl-copy", "xclip", "xsel":
		if cmd.Stdin != nil {
			f.clipboard = stdin
			return proc.Result{}, nil
		}
		return proc.Result{Stdout: []byte(f.clipboard)}, nil
	case "wl-paste":
		return proc.Result{Stdout: []byte(f.clipboard)}, nil
	}
	return proc.Result{}, nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) countPrefix(prefix string) int {
	n := 0
	for _, c := range f.commands() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func failWith(msg string) (proc.Result, error) {
	return proc.Result{}, errors.New(msg)
}

type fakeSystem struct {
	mu      sync.Mutex
	content string
	readErr error
	writes  []string
}

func (f *fakeSystem) ReadAll() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.readErr
}

func (f *fakeSystem) WriteAll(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, text)
	f.content = text
	return nil
}

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

// quick removes real delays from d.
func quick(d *Deliverer, retries uint64) *Deliverer {
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	d.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(retries, retry.NewConstant(time.Millisecond))
	}
	return d
}
