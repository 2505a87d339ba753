package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Import   ImportConfig   `yaml:"import" mapstructure:"import"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Artifact ArtifactConfig `yaml:"artifact" mapstructure:"artifact"`
	Funnel   FunnelConfig   `yaml:"funnel" mapstructure:"funnel"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScoringConfig holds the match factor weights and floors.
type ScoringConfig struct {
	SectorWeight       float64 `yaml:"sector_weight" mapstructure:"sector_weight"`
	TicketWeight       float64 `yaml:"ticket_weight" mapstructure:"ticket_weight"`
	RevenueWeight      float64 `yaml:"revenue_weight" mapstructure:"revenue_weight"`
	ValuationWeight    float64 `yaml:"valuation_weight" mapstructure:"valuation_weight"`
	RevenueModelWeight float64 `yaml:"revenue_model_weight" mapstructure:"revenue_model_weight"`
	OriginWeight       float64 `yaml:"origin_weight" mapstructure:"origin_weight"`
	AgeWeight          float64 `yaml:"age_weight" mapstructure:"age_weight"`
	StageWeight        float64 `yaml:"stage_weight" mapstructure:"stage_weight"`

	// RatioFloor is the minimum contribution of the ratio factors.
	RatioFloor float64 `yaml:"ratio_floor" mapstructure:"ratio_floor"`
	// SectorFloor is the contribution of a non-matching sector.
	SectorFloor float64 `yaml:"sector_floor" mapstructure:"sector_floor"`

	TicketRatio    string `yaml:"ticket_ratio" mapstructure:"ticket_ratio"`
	ValuationRatio string `yaml:"valuation_ratio" mapstructure:"valuation_ratio"`
}

// ImportConfig configures the bulk import pipeline.
type ImportConfig struct {
	ProvisionDelayMs       int    `yaml:"provision_delay_ms" mapstructure:"provision_delay_ms"`
	SecretLength           int    `yaml:"secret_length" mapstructure:"secret_length"`
	MaxConsecutiveFailures int    `yaml:"max_consecutive_failures" mapstructure:"max_consecutive_failures"`
	OutputDir              string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ProvisionDelay returns the configured spacing between provisioning calls.
func (c ImportConfig) ProvisionDelay() time.Duration {
	return time.Duration(c.ProvisionDelayMs) * time.Millisecond
}

// IdentityConfig configures the built-in identity provisioner.
type IdentityConfig struct {
	MinIntervalMs int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	BcryptCost    int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// ArtifactConfig configures where classified spreadsheets are uploaded.
type ArtifactConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"`
	Dir           string `yaml:"dir" mapstructure:"dir"`
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
	FTPURL        string `yaml:"ftp_url" mapstructure:"ftp_url"`
	FTPUser       string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword   string `yaml:"ftp_password" mapstructure:"ftp_password"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`

	// UploadAttempts bounds retries of transient upload failures.
	UploadAttempts  int `yaml:"upload_attempts" mapstructure:"upload_attempts"`
	UploadBackoffMs int `yaml:"upload_backoff_ms" mapstructure:"upload_backoff_ms"`
}

// FunnelConfig configures ranking.
type FunnelConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// FetchConfig configures downloads of remote spreadsheets.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxMB       int    `yaml:"max_mb" mapstructure:"max_mb"`
	// RequestsPerSecond limits requests per host.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "matchmaker.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("scoring.sector_weight", 1)
	v.SetDefault("scoring.ticket_weight", 1)
	v.SetDefault("scoring.revenue_weight", 1)
	v.SetDefault("scoring.valuation_weight", 1)
	v.SetDefault("scoring.revenue_model_weight", 1)
	v.SetDefault("scoring.origin_weight", 1)
	v.SetDefault("scoring.age_weight", 1)
	v.SetDefault("scoring.stage_weight", 1)
	v.SetDefault("scoring.ratio_floor", 0.1)
	v.SetDefault("scoring.sector_floor", 0)
	v.SetDefault("scoring.ticket_ratio", "ticket_over_valuation")
	v.SetDefault("scoring.valuation_ratio", "preferred_over_valuation")
	v.SetDefault("import.provision_delay_ms", 3000)
	v.SetDefault("import.secret_length", 12)
	v.SetDefault("import.max_consecutive_failures", 5)
	v.SetDefault("import.output_dir", ".")
	v.SetDefault("identity.min_interval_ms", 1000)
	v.SetDefault("identity.bcrypt_cost", 10)
	v.SetDefault("artifact.backend", "local")
	v.SetDefault("artifact.dir", "classified_startups")
	v.SetDefault("artifact.timeout_secs", 30)
	v.SetDefault("artifact.upload_attempts", 3)
	v.SetDefault("artifact.upload_backoff_ms", 500)
	v.SetDefault("funnel.concurrency", 8)
	v.SetDefault("fetch.user_agent", "matchmaker/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.max_mb", 20)
	v.SetDefault("fetch.requests_per_second", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the named section are set.
func (c *Config) Validate(section string) error {
	var missing []string
	switch section {
	case "store":
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url (MATCH_STORE_DATABASE_URL)")
		}
	case "artifact":
		switch c.Artifact.Backend {
		case "local":
			if c.Artifact.Dir == "" {
				missing = append(missing, "artifact.dir (MATCH_ARTIFACT_DIR)")
			}
		case "ftp":
			if c.Artifact.FTPURL == "" {
				missing = append(missing, "artifact.ftp_url (MATCH_ARTIFACT_FTP_URL)")
			}
		default:
			return eris.Errorf("config: unsupported artifact backend %q", c.Artifact.Backend)
		}
	case "import":
		if c.Import.ProvisionDelayMs < 0 {
			return eris.New("config: import.provision_delay_ms must be >= 0")
		}
		if c.Import.SecretLength < 8 {
			return eris.New("config: import.secret_length must be >= 8")
		}
	default:
		return eris.Errorf("config: unknown section %q", section)
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
