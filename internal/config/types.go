// Package config resolves, parses, validates, and defaults voce configuration.
package config

import "fmt"

// Config is the fully materialized runtime configuration.
type Config struct {
	Audio         AudioConfig         `toml:"audio"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Delivery      DeliveryConfig      `toml:"delivery"`
	Behavior      BehaviorConfig      `toml:"behavior"`
	Indicator     IndicatorConfig     `toml:"indicator"`
}

// AudioConfig selects the capture source and where recordings land.
type AudioConfig struct {
	Input      string `toml:"input"`
	ScratchDir string `toml:"scratch_dir"`
}

// TranscriptionConfig chooses and parameterizes the speech-to-text backend.
// Empty fields mean "use the provider default".
type TranscriptionConfig struct {
	Provider    string `toml:"provider"`
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CommandPath string `toml:"command_path"`
	ModelPath   string `toml:"model_path"`
	APIEndpoint string `toml:"api_endpoint"`
	APIKeyEnv   string `toml:"api_key_env"`
}

// DeliveryConfig controls how transcripts reach the focused window.
type DeliveryConfig struct {
	InputMethod       string `toml:"input_method"`
	AutoPaste         bool   `toml:"auto_paste"`
	PreserveClipboard bool   `toml:"preserve_clipboard"`
}

type BehaviorConfig struct {
	DeleteAudioFiles bool `toml:"delete_audio_files"`
	WatchConfig      bool `toml:"watch_config"`
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool   `toml:"enable"`
	Backend        string `toml:"backend"`
	DesktopAppName string `toml:"desktop_app_name"`
	SoundEnable    bool   `toml:"sound_enable"`
	ErrorTimeoutMS int    `toml:"error_timeout_ms"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}
