package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rbright/voce/internal/asr"
	"github.com/rbright/voce/internal/output"
)

// Validate enforces config invariants and returns non-fatal warnings.
// Unrecognized provider and input method names only warn: the runtime
// falls back to auto-detection for both.
func Validate(cfg Config) ([]Warning, error) {
	var warnings []Warning

	if strings.TrimSpace(cfg.Transcription.Language) == "" {
		return nil, fmt.Errorf("transcription.language must not be empty (use \"auto\" to let the provider detect it)")
	}
	if _, ok := asr.ParseKind(cfg.Transcription.Provider); !ok {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("transcription.provider %q is not recognized; auto-detecting", cfg.Transcription.Provider)})
	}
	if endpoint := strings.TrimSpace(cfg.Transcription.APIEndpoint); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("transcription.api_endpoint must be an http(s) URL")
		}
	}
	if strings.ContainsAny(cfg.Transcription.APIKeyEnv, " =") {
		return nil, fmt.Errorf("transcription.api_key_env must be an environment variable name")
	}

	if _, ok := output.ParseMethod(cfg.Delivery.InputMethod); !ok {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("delivery.input_method %q is not recognized; auto-detecting", cfg.Delivery.InputMethod)})
	}

	if dir := strings.TrimSpace(cfg.Audio.ScratchDir); dir != "" && !filepath.IsAbs(dir) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.scratch_dir %q is relative; it resolves against the daemon working directory", dir)})
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	return warnings, nil
}
