package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input: "default",
		},
		Transcription: TranscriptionConfig{
			Language:  "en",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Delivery: DeliveryConfig{
			AutoPaste: true,
		},
		Behavior: BehaviorConfig{
			DeleteAudioFiles: true,
			WatchConfig:      true,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "voce",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
	}
}
