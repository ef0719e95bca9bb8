package config

const (
	defaultDataDir            = "~/.local/share/soundscout"
	defaultCacheDir           = "~/.cache/soundscout/artifacts"
	defaultWorkDir            = "~/.cache/soundscout/work"
	defaultLogDir             = "~/.local/share/soundscout/logs"
	defaultFetchMaxBytes      = 45 << 20
	defaultFetchMaxDuration   = 900
	defaultFetchTimeout       = 120
	defaultFetchMaxRetries    = 3
	defaultFetchBackoffMillis = 500
	defaultFetchUserAgent     = "SoundScout/0.1"
	defaultFetchSampleRate    = 11025
	defaultStoreCapacity      = 2 << 30
	defaultStoreMaxItems      = 2048
	defaultWorkers            = 4
	defaultInflightGlobal     = 16
	defaultInflightPerOwner   = 2
	defaultQueueDepthPerOwner = 8
	defaultRecognitionBaseURL = "https://api.acoustid.org/v2/lookup"
	defaultRecognitionTimeout = 30
	defaultMinConfidence      = 0.6
	defaultNotifyTimeout      = 10
	defaultRetentionHours     = 72
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			CacheDir: defaultCacheDir,
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
		},
		Fetch: Fetch{
			MaxBytes:           defaultFetchMaxBytes,
			MaxDurationSeconds: defaultFetchMaxDuration,
			Timeout:            defaultFetchTimeout,
			MaxRetries:         defaultFetchMaxRetries,
			RetryBackoffMillis: defaultFetchBackoffMillis,
			UserAgent:          defaultFetchUserAgent,
			SampleRate:         defaultFetchSampleRate,
		},
		Store: Store{
			CapacityBytes: defaultStoreCapacity,
			MaxItems:      defaultStoreMaxItems,
		},
		Scheduler: Scheduler{
			Workers:               defaultWorkers,
			MaxInflightGlobal:     defaultInflightGlobal,
			MaxInflightPerOwner:   defaultInflightPerOwner,
			MaxQueueDepthPerOwner: defaultQueueDepthPerOwner,
		},
		Recognition: Recognition{
			BaseURL:        defaultRecognitionBaseURL,
			TimeoutSeconds: defaultRecognitionTimeout,
			MinConfidence:  defaultMinConfidence,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Jobs:           true,
			Errors:         true,
		},
		Workflow: Workflow{
			RetentionHours:     defaultRetentionHours,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
