package config

const (
	defaultConfigPath                = "~/.config/scenetrack/config.toml"
	defaultDataDir                   = "~/.local/share/scenetrack"
	defaultLogDir                    = "~/.local/share/scenetrack/logs"
	defaultLockDir                   = "~/.local/share/scenetrack/locks"
	defaultStorageRoot               = "~/.local/share/scenetrack/buckets"
	defaultInputBucket               = "video-input"
	defaultProcessingBucket          = "video-processing"
	defaultArchiveBucket             = "video-archive"
	defaultAPIBind                   = "127.0.0.1:7491"
	defaultAnnotationBaseURL         = "https://videointelligence.googleapis.com/v1"
	defaultAnnotationTimeout         = 60
	defaultAnnotationPollInterval    = 5
	defaultAnnotationMaxWait         = 1800
	defaultAnnotationRetryAttempts   = 5
	defaultConfidenceThreshold       = 0.5
	defaultLabelFile                 = "objects.vtt"
	defaultEmojiFile                 = "emoji.vtt"
	defaultEmojiBaseURL              = "https://www.emojidex.com/api/v1"
	defaultEmojiTimeout              = 10
	defaultEmojiFallback             = "🤷"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 30
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultWatcherDebounce           = 2
	defaultNtfyRequestTimeout        = 10

	// ConfidenceThresholdEnv overrides consolidation.confidence_threshold.
	ConfidenceThresholdEnv = "CONFIDENCE_THRESHOLD"
)

var defaultWatcherExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".webm"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			LockDir: defaultLockDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			RootDir:          defaultStorageRoot,
			InputBucket:      defaultInputBucket,
			ProcessingBucket: defaultProcessingBucket,
			ArchiveBucket:    defaultArchiveBucket,
		},
		Annotation: Annotation{
			BaseURL:             defaultAnnotationBaseURL,
			TimeoutSeconds:      defaultAnnotationTimeout,
			PollIntervalSeconds: defaultAnnotationPollInterval,
			MaxWaitSeconds:      defaultAnnotationMaxWait,
			RetryAttempts:       defaultAnnotationRetryAttempts,
		},
		Consolidation: Consolidation{
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Tracks: Tracks{
			IncludeCategories:   true,
			LabelFile:           defaultLabelFile,
			EmojiEnabled:        true,
			EmojiFile:           defaultEmojiFile,
			EmojiBaseURL:        defaultEmojiBaseURL,
			EmojiTimeoutSeconds: defaultEmojiTimeout,
			EmojiFallback:       defaultEmojiFallback,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Watcher: Watcher{
			Extensions:      append([]string(nil), defaultWatcherExtensions...),
			DebounceSeconds: defaultWatcherDebounce,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyRequestTimeout,
			NotifyCompleted:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
