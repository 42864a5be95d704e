package asr

import (
	"context"
	"errors"
	"os/exec"
	"sync"

	"github.com/rbright/voce/internal/proc"
)

// fakeRunner resolves binaries from paths and answers --help with help.
// Every other invocation goes to run.
type fakeRunner struct {
	paths map[string]string
	help  string
	run   func(cmd proc.Command) (proc.Result, error)

	mu    sync.Mutex
	calls []proc.Command
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Run(_ context.Context, cmd proc.Command) (proc.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if len(cmd.Args) == 1 && cmd.Args[0] == "--help" {
		return proc.Result{Stdout: []byte(f.help)}, nil
	}
	if f.run == nil {
		return proc.Result{}, errors.New("unexpected command " + cmd.String())
	}
	return f.run(cmd)
}

func (f *fakeRunner) commands() []proc.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proc.Command(nil), f.calls...)
}

const openaiWhisperHelp = `usage: whisper [-h] [--model MODEL] [--output_dir OUTPUT_DIR]
  --output_format {txt,vtt,srt,tsv,json,all}`

const whisperCppHelp = `usage: whisper-cli [options] file0 file1 ...
  -f FNAME,  --file FNAME   [       ] input audio file path
  -nt,       --no-timestamps`

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}
