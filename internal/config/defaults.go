package config

const (
	defaultDataDir             = "~/.local/share/clipforge"
	defaultLogDir              = "~/.local/share/clipforge/logs"
	defaultCallbackBind        = "127.0.0.1:8747"
	defaultLogLevel            = "info"
	defaultLogFormat           = "console"
	defaultItemDelayMS         = 1500
	defaultClipPollInterval    = 1
	defaultClipPollMaxAttempts = 300
	defaultScriptGenBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultScriptGenModel      = "google/gemini-3-flash-preview"
	defaultScriptGenTimeout    = 120
	defaultImageGenBaseURL     = "https://api.clipforge.dev/v1/images"
	defaultImageGenModel       = "flux-pro"
	defaultImageGenTimeout     = 120
	defaultClipGenBaseURL      = "https://api.clipforge.dev/v1/clips"
	defaultClipGenTimeout      = 30
	defaultNtfyRequestTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			CallbackBind: defaultCallbackBind,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Workflow: Workflow{
			ItemDelayMS:             defaultItemDelayMS,
			ClipPollIntervalSeconds: defaultClipPollInterval,
			ClipPollMaxAttempts:     defaultClipPollMaxAttempts,
			Autosave:                true,
		},
		ScriptGen: ScriptGen{
			BaseURL:        defaultScriptGenBaseURL,
			Model:          defaultScriptGenModel,
			TimeoutSeconds: defaultScriptGenTimeout,
		},
		ImageGen: ImageGen{
			BaseURL:        defaultImageGenBaseURL,
			Model:          defaultImageGenModel,
			TimeoutSeconds: defaultImageGenTimeout,
		},
		ClipGen: ClipGen{
			BaseURL:        defaultClipGenBaseURL,
			TimeoutSeconds: defaultClipGenTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
	}
}
