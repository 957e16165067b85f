package config

const (
	defaultIntakeDir           = "~/kaitiaki/intake"
	defaultArchiveDir          = "~/kaitiaki/archive"
	defaultLogDir              = "~/.local/share/kaitiaki/logs"
	defaultAPIBind             = "127.0.0.1:7749"
	defaultScanInterval        = 30
	defaultMaxFileSizeMB       = 10
	defaultMaxAttempts         = 3
	defaultRetryBackoffSeconds = 5
	defaultProcessPriority     = 5
	defaultAuditPriority       = 3
	defaultIndexPriority       = 5
	defaultAnalyzePriority     = 7
	defaultWorkerCount         = 2
	defaultPollInterval        = 5
	defaultTaskTimeout         = 120
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IntakeDir:  defaultIntakeDir,
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Intake: Intake{
			ScanInterval:  defaultScanInterval,
			MaxFileSizeMB: defaultMaxFileSizeMB,
			Extensions:    []string{".md", ".txt", ".json"},
			WatchIntake:   true,
			AuditEnabled:  true,
		},
		Queue: Queue{
			MaxAttempts:         defaultMaxAttempts,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
			ProcessPriority:     defaultProcessPriority,
			AuditPriority:       defaultAuditPriority,
			IndexPriority:       defaultIndexPriority,
			AnalyzePriority:     defaultAnalyzePriority,
		},
		Workers: Workers{
			Count:               defaultWorkerCount,
			PollIntervalSeconds: defaultPollInterval,
			TaskTimeoutSeconds:  defaultTaskTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
