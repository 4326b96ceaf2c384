// Package config defines the eventgen configuration tree and its defaults.
package config

// EmbeddedConfig holds the raw bytes of a YAML configuration document,
// typically embedded by the main package.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// Scheduler types.
const (
	SchedulerLocal = "local"
	SchedulerTimer = "timer"
	SchedulerRedis = "redis"
	SchedulerAuto  = "auto"
)

// Config is the root of the configuration tree.
type Config struct {
	EventGen EventGenConfig `yaml:"eventgen"`
}

// EventGenConfig groups all eventgen settings.
type EventGenConfig struct {
	Generator      GeneratorConfig      `yaml:"generator"`
	Scheduler      SchedulerConfig      `yaml:"scheduler"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	// Database holds named database connection settings, decoded by the database adapters.
	Database map[string]interface{} `yaml:"database"`
	// Storage holds named blob storage settings, decoded by the storage adapters.
	Storage map[string]interface{} `yaml:"storage"`
}

// GeneratorConfig controls batch slicing and event generation.
type GeneratorConfig struct {
	// BatchCeiling is the maximum number of records created per invocation.
	BatchCeiling int `yaml:"batch_ceiling"`
	// RequeueDelaySeconds is the delay used by the timed scheduler.
	RequeueDelaySeconds int `yaml:"requeue_delay_seconds"`
	// FastOccurrencesInsert is the default for requests that do not set it.
	FastOccurrencesInsert bool `yaml:"fast_occurrences_insert"`
	// DefaultTimezone is used for events whose venue does not determine one.
	DefaultTimezone string `yaml:"default_timezone"`
	// UploadBucket is the bucket or directory uploads are written to.
	UploadBucket string `yaml:"upload_bucket"`
}

// SchedulerConfig selects how continuations are deferred.
type SchedulerConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the deferred queue.
type RedisConfig struct {
	Addr               string `yaml:"addr"`
	Password           string `yaml:"password"`
	DB                 int    `yaml:"db"`
	QueueKey           string `yaml:"queue_key"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// InfrastructureConfig names the connections used for content and uploads.
type InfrastructureConfig struct {
	ContentDBRef string `yaml:"content_db_ref"`
	StorageRef   string `yaml:"storage_ref"`
}

// MetricsConfig controls the Prometheus recorder and its HTTP endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		EventGen: EventGenConfig{
			Generator: GeneratorConfig{
				BatchCeiling:        50,
				RequeueDelaySeconds: 5,
				DefaultTimezone:     "America/New_York",
				UploadBucket:        "uploads",
			},
			Scheduler: SchedulerConfig{
				Type: SchedulerLocal,
				Redis: RedisConfig{
					Addr:               "localhost:6379",
					QueueKey:           "eventgen:queue",
					PollTimeoutSeconds: 5,
				},
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo), Format: "text"},
			},
			Infrastructure: InfrastructureConfig{
				ContentDBRef: "content",
				StorageRef:   "uploads",
			},
			Metrics: MetricsConfig{ListenAddress: ":9090"},
			Tracing: TracingConfig{ServiceName: "eventgen"},
			Database: map[string]interface{}{
				"content": map[string]interface{}{
					"type":     "sqlite",
					"database": "eventgen.db",
				},
			},
			Storage: map[string]interface{}{
				"uploads": map[string]interface{}{
					"type":     "local",
					"base_dir": "./data",
				},
			},
		},
	}
}
