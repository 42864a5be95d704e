package asr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/voce/internal/proc"
)

// Binary names searched on PATH, in order, when no command path is configured.
var (
	whisperCLINames = []string{"whisper"}
	whisperCppNames = []string{"whisper-cli", "whisper-cpp"}
	anyWhisperNames = []string{"whisper", "whisper-cli", "whisper-cpp"}
)

// resolveBinary returns the configured path when set (it must exist), else
// the first name found on PATH.
func resolveBinary(r proc.Runner, commandPath string, names []string) (string, error) {
	if commandPath = strings.TrimSpace(commandPath); commandPath != "" {
		resolved, err := r.LookPath(commandPath)
		if err != nil {
			return "", fmt.Errorf("command_path %q: %w", commandPath, err)
		}
		return resolved, nil
	}
	for _, name := range names {
		if resolved, err := r.LookPath(name); err == nil {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("none of %s found on PATH", strings.Join(names, ", "))
}

// probeKind runs "<bin> --help" and classifies the binary. Help output that
// advertises both --output_format and --output_dir is the openai-whisper CLI;
// anything else, including a failed probe, is treated as whisper.cpp.
func probeKind(ctx context.Context, r proc.Runner, binary string) Kind {
	res, _ := r.Run(ctx, proc.Command{Name: binary, Args: []string{"--help"}})
	help := res.Combined()
	if strings.Contains(help, "--output_format") && strings.Contains(help, "--output_dir") {
		return KindWhisperCLI
	}
	return KindWhisperCpp
}

// WhisperCLI drives the openai-whisper command line tool, which writes its
// transcript to <output_dir>/<stem>.txt.
type WhisperCLI struct {
	runner     proc.Runner
	binary     string
	model      string
	scratchDir string
}

func NewWhisperCLI(runner proc.Runner, binary, model, scratchDir string) *WhisperCLI {
	if strings.TrimSpace(model) == "" {
		model = DefaultWhisperCLIModel
	}
	return &WhisperCLI{runner: runner, binary: binary, model: model, scratchDir: scratchDir}
}

func (w *WhisperCLI) Name() string { return "whisper-cli" }

func (w *WhisperCLI) Kind() Kind { return KindWhisperCLI }

// Available reports whether the binary still resolves. The dialect probe is
// a selection concern; an explicitly configured binary is used regardless.
func (w *WhisperCLI) Available(context.Context) bool {
	return proc.Has(w.runner, w.binary)
}

func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	outDir, err := os.MkdirTemp(w.scratchDir, stem+"-")
	if err != nil {
		return "", fmt.Errorf("create whisper output dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	args := []string{audioPath, "--model", w.model}
	if !autoLanguage(language) {
		args = append(args, "--language", language)
	}
	args = append(args, "--output_format", "txt", "--output_dir", outDir)

	if _, err := w.runner.Run(ctx, proc.Command{Name: w.binary, Args: args}); err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	outPath := filepath.Join(outDir, stem+".txt")
	text, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	_ = os.Remove(outPath)
	return string(text), nil
}

// WhisperCpp drives a whisper.cpp style binary that prints the transcript
// to stdout.
type WhisperCpp struct {
	runner    proc.Runner
	binary    string
	model     string
	modelPath string
	logger    *slog.Logger
}

func NewWhisperCpp(runner proc.Runner, binary, model, modelPath string, logger *slog.Logger) *WhisperCpp {
	if strings.TrimSpace(model) == "" {
		model = DefaultWhisperCppModel
	}
	return &WhisperCpp{runner: runner, binary: binary, model: model, modelPath: strings.TrimSpace(modelPath), logger: logger}
}

func (w *WhisperCpp) Name() string { return "whisper-cpp" }

func (w *WhisperCpp) Kind() Kind { return KindWhisperCpp }

func (w *WhisperCpp) Available(context.Context) bool {
	return proc.Has(w.runner, w.binary)
}

// ModelArg is the value passed to -m.
func (w *WhisperCpp) ModelArg() string {
	if w.modelPath != "" {
		return w.modelPath
	}
	return filepath.Join("models", "ggml-"+w.model+".bin")
}

// Transcribe runs the full argument set first and, if that fails, one
// retry with only the input file and an explicitly configured model.
func (w *WhisperCpp) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	if autoLanguage(language) {
		language = "auto"
	}
	full := []string{"-f", audioPath, "-m", w.ModelArg(), "-l", language, "-nt", "-np"}
	res, err := w.runner.Run(ctx, proc.Command{Name: w.binary, Args: full})
	if err == nil {
		return string(res.Stdout), nil
	}

	if w.logger != nil {
		w.logger.Warn("whisper.cpp failed; retrying with minimal arguments", "error", err.Error())
	}
	minimal := []string{"-f", audioPath}
	if w.modelPath != "" {
		minimal = append(minimal, "-m", w.modelPath)
	}
	res, retryErr := w.runner.Run(ctx, proc.Command{Name: w.binary, Args: minimal})
	if retryErr != nil {
		return "", fmt.Errorf("whisper.cpp transcription failed: %w (retry: %v)", err, retryErr)
	}
	return string(res.Stdout), nil
}
