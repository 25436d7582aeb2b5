package config

const (
	defaultOutputDir  = "~/Downloads/YouTube Transcripts"
	defaultStagingDir = "~/.local/share/ytscribe/staging"
	defaultLogDir     = "~/.local/share/ytscribe/logs"
	defaultCookies    = "~/Downloads/ytscribe/youtube_cookies.txt"

	defaultChunkThresholdHours = 2.0
	defaultBaseChunkSeconds    = 3600
	defaultOverlapSeconds      = 2
	defaultMinChunkSeconds     = 300

	defaultPreferredBitrate = 96
	defaultMinBitrate       = 64
	defaultMaxBitrate       = 128

	defaultDeepgramBaseURL  = "https://api.deepgram.com/v1"
	defaultDeepgramModel    = "nova-3"
	defaultDeepgramLanguage = "en"
	defaultRequestsPerMin   = 30
	defaultBackoffBaseSecs  = 2
	defaultBackoffAttempts  = 4

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultMaxStageAttempts   = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Cookies: Cookies{
			Mode: CookiesModeOff,
			Path: defaultCookies,
		},
		Chunking: Chunking{
			ThresholdHours:   defaultChunkThresholdHours,
			BaseChunkSeconds: defaultBaseChunkSeconds,
			OverlapSeconds:   defaultOverlapSeconds,
			MinChunkSeconds:  defaultMinChunkSeconds,
		},
		Audio: Audio{
			PreferredBitrateKbps: defaultPreferredBitrate,
			MinBitrateKbps:       defaultMinBitrate,
			MaxBitrateKbps:       defaultMaxBitrate,
		},
		Deepgram: Deepgram{
			BaseURL:           defaultDeepgramBaseURL,
			Model:             defaultDeepgramModel,
			Language:          defaultDeepgramLanguage,
			RequestsPerMinute: defaultRequestsPerMin,
			BackoffBaseSecs:   defaultBackoffBaseSecs,
			BackoffAttempts:   defaultBackoffAttempts,
		},
		Tools: Tools{
			YtDlp:   "yt-dlp",
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxStageAttempts:   defaultMaxStageAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
