package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Nats      NatsConfig
	Log       LogConfig
	Processor ProcessorConfig
	Context   ContextConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// DSN returns the Postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address for the Redis client
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NatsConfig holds message bus connection settings.
// URLs are tried in order; Subjects are wildcard patterns subscribed under
// QueueGroup so the broker delivers each message to exactly one instance.
type NatsConfig struct {
	URLs          []string
	Subjects      []string
	Stream        string
	QueueGroup    string
	ClientName    string
	ReconnectWait time.Duration
	MaxReconnects int // negative means retry forever
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ProcessorConfig holds event processing configuration
type ProcessorConfig struct {
	AutoCreateCustomers bool
	// NoteLengthThreshold is the description length beyond which a
	// knowledge note is derived even without an importance flag.
	NoteLengthThreshold int
	// NoteSummaryLength is the maximum length of the stored note content;
	// the full text remains in the event's raw payload.
	NoteSummaryLength int
	DedupeEnabled     bool
	DedupeTTL         time.Duration
}

// ContextConfig holds context builder configuration
type ContextConfig struct {
	EventLimit       int
	RecentWorkOrders int
	CacheEnabled     bool
	CacheTTL         time.Duration
}

// HTTPConfig holds the operational HTTP server configuration
type HTTPConfig struct {
	Enabled      bool
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PROFILEHUB_ prefix (e.g., PROFILEHUB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PROFILEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Nats: NatsConfig{
			URLs:          v.GetStringSlice("nats.urls"),
			Subjects:      v.GetStringSlice("nats.subjects"),
			Stream:        v.GetString("nats.stream"),
			QueueGroup:    v.GetString("nats.queue_group"),
			ClientName:    v.GetString("nats.client_name"),
			ReconnectWait: v.GetDuration("nats.reconnect_wait"),
			MaxReconnects: v.GetInt("nats.max_reconnects"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Processor: ProcessorConfig{
			AutoCreateCustomers: v.GetBool("processor.auto_create_customers"),
			NoteLengthThreshold: v.GetInt("processor.note_length_threshold"),
			NoteSummaryLength:   v.GetInt("processor.note_summary_length"),
			DedupeEnabled:       v.GetBool("processor.dedupe_enabled"),
			DedupeTTL:           v.GetDuration("processor.dedupe_ttl"),
		},
		Context: ContextConfig{
			EventLimit:       v.GetInt("context.event_limit"),
			RecentWorkOrders: v.GetInt("context.recent_work_orders"),
			CacheEnabled:     v.GetBool("context.cache_enabled"),
			CacheTTL:         v.GetDuration("context.cache_ttl"),
		},
		HTTP: HTTPConfig{
			Enabled:      v.GetBool("http.enabled"),
			Port:         v.GetString("http.port"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
	}

	// viper has no way to express "false was set explicitly" for bools read
	// through GetBool, so defaults that should be true are keyed on IsSet.
	if !v.IsSet("processor.auto_create_customers") {
		cfg.Processor.AutoCreateCustomers = true
	}
	if !v.IsSet("processor.dedupe_enabled") {
		cfg.Processor.DedupeEnabled = true
	}
	if !v.IsSet("http.enabled") {
		cfg.HTTP.Enabled = true
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "profilehub-consumer"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "profilehub"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if len(cfg.Nats.URLs) == 0 {
		cfg.Nats.URLs = []string{"nats://localhost:4222"}
	}
	if len(cfg.Nats.Subjects) == 0 {
		cfg.Nats.Subjects = []string{"customer.events.>"}
	}
	if cfg.Nats.Stream == "" {
		cfg.Nats.Stream = "CUSTOMER_EVENTS"
	}
	if cfg.Nats.QueueGroup == "" {
		cfg.Nats.QueueGroup = "profile-consumers"
	}
	if cfg.Nats.ClientName == "" {
		cfg.Nats.ClientName = cfg.App.Name
	}
	if cfg.Nats.ReconnectWait == 0 {
		cfg.Nats.ReconnectWait = 2 * time.Second
	}
	if cfg.Nats.MaxReconnects == 0 {
		cfg.Nats.MaxReconnects = -1 // retry forever; only config errors are fatal
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Processor.NoteLengthThreshold == 0 {
		cfg.Processor.NoteLengthThreshold = 500
	}
	if cfg.Processor.NoteSummaryLength == 0 {
		cfg.Processor.NoteSummaryLength = 280
	}
	if cfg.Processor.DedupeTTL == 0 {
		cfg.Processor.DedupeTTL = 24 * time.Hour
	}
	if cfg.Context.EventLimit == 0 {
		cfg.Context.EventLimit = 20
	}
	if cfg.Context.RecentWorkOrders == 0 {
		cfg.Context.RecentWorkOrders = 5
	}
	if cfg.Context.CacheTTL == 0 {
		cfg.Context.CacheTTL = 30 * time.Second
	}
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8090"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
}

// validate checks configuration invariants that would make startup unsafe
func (c *Config) validate() error {
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
	}
	for _, u := range c.Nats.URLs {
		if !strings.HasPrefix(u, "nats://") && !strings.HasPrefix(u, "tls://") {
			return fmt.Errorf("invalid nats url %q: must start with nats:// or tls://", u)
		}
	}
	for _, s := range c.Nats.Subjects {
		if err := ValidateSubject(s); err != nil {
			return err
		}
	}
	if c.Processor.NoteSummaryLength > c.Processor.NoteLengthThreshold {
		return fmt.Errorf("note summary length %d exceeds threshold %d",
			c.Processor.NoteSummaryLength, c.Processor.NoteLengthThreshold)
	}
	return nil
}

// ValidateSubject checks a subject pattern against broker addressing rules.
// An invalid pattern is an unrecoverable configuration error: the subscriber
// refuses to start rather than spin on a subscription the broker rejects.
func ValidateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("subject pattern cannot be empty")
	}
	tokens := strings.Split(subject, ".")
	for i, tok := range tokens {
		switch {
		case tok == "":
			return fmt.Errorf("invalid subject %q: empty token", subject)
		case tok == ">" && i != len(tokens)-1:
			return fmt.Errorf("invalid subject %q: '>' must be the last token", subject)
		case strings.ContainsAny(tok, " \t"):
			return fmt.Errorf("invalid subject %q: whitespace in token", subject)
		case tok != "*" && tok != ">" && strings.ContainsAny(tok, "*>"):
			return fmt.Errorf("invalid subject %q: wildcard inside token", subject)
		}
	}
	return nil
}
