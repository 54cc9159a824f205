package config

const (
	defaultStateDir                = "~/.local/share/slidecast"
	defaultLogDir                  = "~/.local/share/slidecast/logs"
	defaultBackendBaseURL          = "http://127.0.0.1:8000/api"
	defaultStartTimeoutSeconds     = 600
	defaultStatusTimeoutSeconds    = 30
	defaultLLMProvider             = "gemini"
	defaultGeminiModel             = "gemini-2.0-flash"
	defaultOllamaBaseURL           = "http://localhost:11434"
	defaultTTSVoice                = "zh-TW-HsiaoChenNeural"
	defaultTTSRate                 = "+0%"
	defaultTTSPitch                = "+0Hz"
	defaultAvatarEmotion           = 4
	defaultAvatarCropScale         = 2.5
	defaultAvatarSamplingSteps     = 20
	defaultAvatarMaxSize           = 480
	defaultPollIntervalMillis      = 2000
	defaultBusyPollIntervalSeconds = 10
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Backend: Backend{
			BaseURL:              defaultBackendBaseURL,
			StartTimeoutSeconds:  defaultStartTimeoutSeconds,
			StatusTimeoutSeconds: defaultStatusTimeoutSeconds,
		},
		LLM: LLM{
			Provider:      defaultLLMProvider,
			Model:         defaultGeminiModel,
			OllamaBaseURL: defaultOllamaBaseURL,
		},
		TTS: TTS{
			Voice: defaultTTSVoice,
			Rate:  defaultTTSRate,
			Pitch: defaultTTSPitch,
		},
		Avatar: Avatar{
			Emotion:       defaultAvatarEmotion,
			CropScale:     defaultAvatarCropScale,
			SamplingSteps: defaultAvatarSamplingSteps,
			MaxSize:       defaultAvatarMaxSize,
		},
		Workflow: Workflow{
			PollIntervalMillis:      defaultPollIntervalMillis,
			BusyPollIntervalSeconds: defaultBusyPollIntervalSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completions:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
