package config

const (
	defaultConfigPath          = "~/.config/superwire/config.toml"
	defaultWorkDir             = "~/.local/share/superwire/work"
	defaultStateDir            = "~/.local/share/superwire/state"
	defaultLogDir              = "~/.local/share/superwire/logs"
	defaultLocalStorageDir     = "~/.local/share/superwire/episodes"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultNewsProvider        = NewsProviderNewsAPI
	defaultNewsBaseURL         = "https://newsapi.org/v2/top-headlines"
	defaultNewsPageSize        = 3
	defaultNewsTimeoutSeconds  = 15
	defaultLLMBaseURL          = "https://api.openai.com/v1/completions"
	defaultLLMModel            = "gpt-3.5-turbo-instruct"
	defaultLLMContextLimit     = 4000
	defaultLLMTemperature      = 0.7
	defaultLLMTimeoutSeconds   = 120
	defaultRetryMaxAttempts    = 5
	defaultRetryDelaySeconds   = 5
	defaultTTSBaseURL          = "https://api.elevenlabs.io/v1/text-to-speech"
	defaultTTSTimeoutSeconds   = 120
	defaultAudioExtension      = "mp3"
	defaultConcatMode          = ConcatNative
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultStorageBackend      = StorageLocal
	defaultAzureContainer      = "episodes"
	defaultSupabaseBucket      = "episodes"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultAnchorPersonaID     = "adam"
	defaultFieldAPersonaID     = "dallas"
	defaultFieldBPersonaID     = "jordan"
	defaultSerializeGeneration = true
)

// Supported option values.
const (
	NewsProviderNewsAPI = "newsapi"
	NewsProviderRSS     = "rss"

	ConcatNative = "native"
	ConcatFFmpeg = "ffmpeg"

	StorageLocal    = "local"
	StorageAzure    = "azure"
	StorageSupabase = "supabase"
)

var defaultNewsSources = []string{
	"bbc-news",
	"financial-times",
	"ars-technica",
	"associated-press",
	"bloomberg",
	"hacker-news",
	"new-york-magazine",
	"reuters",
	"the-wall-street-journal",
}

// DefaultPersonas returns the built-in cast: one anchor and two field reporters.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			ID:      defaultAnchorPersonaID,
			Name:    "Adam",
			VoiceID: "pNInz6obpgDQGcFmaJgB",
			Personality: `Consider a news reporter whose name is Adam.
- Adam expands on headlines and their implications instead of just reading them
- Adam is charming and engaging
- Adam favours scientific, technological, economic and geopolitical stories`,
		},
		{
			ID:      defaultFieldAPersonaID,
			Name:    "Dallas",
			VoiceID: "AZnzlk1XvdvUeBnXmlld",
			Personality: `Consider a news reporter whose name is Dallas.
- Dallas is empathetic and highlights the human side of a story
- Dallas is sharp-minded and offers insightful commentary
- Dallas brings a witty sense of humour, even to serious topics`,
		},
		{
			ID:      defaultFieldBPersonaID,
			Name:    "Jordan",
			VoiceID: "VR6AewLTigWG4xSOukaG",
			Personality: `Consider a news reporter whose name is Jordan.
- Jordan is dynamic and energetic, often taking an unexpected angle
- Jordan gives voice to underrepresented communities
- Jordan is a gifted storyteller`,
		},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		News: News{
			Provider:       defaultNewsProvider,
			BaseURL:        defaultNewsBaseURL,
			Sources:        append([]string(nil), defaultNewsSources...),
			PageSize:       defaultNewsPageSize,
			TimeoutSeconds: defaultNewsTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			ContextLimit:   defaultLLMContextLimit,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Retry: Retry{
			MaxAttempts:  defaultRetryMaxAttempts,
			DelaySeconds: defaultRetryDelaySeconds,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Audio: Audio{
			Extension:     defaultAudioExtension,
			ConcatMode:    defaultConcatMode,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
			Local: LocalStorage{
				Dir: defaultLocalStorageDir,
			},
			Azure: AzureStorage{
				Container: defaultAzureContainer,
			},
			Supabase: SupabaseStorage{
				Bucket: defaultSupabaseBucket,
			},
		},
		Pipeline: Pipeline{
			SerializeRuns: defaultSerializeGeneration,
		},
		Personas: DefaultPersonas(),
		Hosts: Hosts{
			Anchor: defaultAnchorPersonaID,
			FieldA: defaultFieldAPersonaID,
			FieldB: defaultFieldBPersonaID,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
