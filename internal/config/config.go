package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bryanwahyu/formc-review/internal/domain/ai"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

// EnvPrefix is prepended to every environment override, e.g. FORMC_SERVER_PORT.
const EnvPrefix = "FORMC"

type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	AI        AIConfig        `yaml:"ai" mapstructure:"ai"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Extractor ExtractorConfig `yaml:"extractor" mapstructure:"extractor"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	MaxUploadMB  int           `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	CORSOrigins  []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// APIKeys maps client id to key. Auth is disabled when empty.
	APIKeys        map[string]string `yaml:"api_keys" mapstructure:"api_keys"`
	RateLimitRPS   float64           `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int               `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// MaxUploadBytes is the request body limit for uploads.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

type AIConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"`
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	Model           string        `yaml:"model" mapstructure:"model"`
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	Temperature     float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	TopP            float64       `yaml:"top_p" mapstructure:"top_p"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`

	OpenAIKey    string `yaml:"-" mapstructure:"openai_api_key"`
	AnthropicKey string `yaml:"-" mapstructure:"anthropic_api_key"`
}

// Generation returns the fixed parameters sent on every reasoning call.
func (a AIConfig) Generation() ai.GenerationConfig {
	return ai.GenerationConfig{
		Temperature:     a.Temperature,
		MaxOutputTokens: a.MaxOutputTokens,
		TopP:            a.TopP,
	}
}

type AnalysisConfig struct {
	MaxDocumentChars int    `yaml:"max_document_chars" mapstructure:"max_document_chars"`
	OversizePolicy   string `yaml:"oversize_policy" mapstructure:"oversize_policy"`
	Intermediary     string `yaml:"intermediary" mapstructure:"intermediary"`
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxConcurrent    int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

type ExtractorConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
	// DockerImage runs pdftotext through docker when set.
	DockerImage string `yaml:"docker_image" mapstructure:"docker_image"`
}

// StoreConfig selects the optional report store: none, mysql or postgres.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type ArchiveConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Minio   MinioConfig `yaml:"minio" mapstructure:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. When path is empty a
// config.yaml in the working directory is used if present.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults must be bound explicitly for Unmarshal to see them.
	for _, key := range []string{"ai.api_key", "ai.model", "ai.base_url", "store.dsn",
		"archive.minio.endpoint", "archive.minio.access_key", "archive.minio.secret_key"} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("ai.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("ai.anthropic_api_key", "ANTHROPIC_API_KEY")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.write_timeout", "240s")
	v.SetDefault("server.rate_limit_rps", 2.0)
	v.SetDefault("server.rate_limit_burst", 5)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_output_tokens", 8000)
	v.SetDefault("ai.top_p", 0.95)
	v.SetDefault("ai.timeout", "180s")
	v.SetDefault("analysis.max_document_chars", 100000)
	v.SetDefault("analysis.oversize_policy", "truncate")
	v.SetDefault("analysis.intermediary", "DealMaker Securities LLC")
	v.SetDefault("analysis.max_attempts", 1)
	v.SetDefault("analysis.max_concurrent", 4)
	v.SetDefault("extractor.pdftotext_path", "pdftotext")
	v.SetDefault("extractor.temp_dir", "")
	v.SetDefault("extractor.docker_image", "")
	v.SetDefault("store.driver", "none")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.minio.bucket", "formc-uploads")
	v.SetDefault("archive.minio.region", "us-east-1")
	v.SetDefault("archive.minio.use_ssl", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless a path was given)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.resolveAPIKey()
	return &cfg, nil
}

// resolveAPIKey falls back to the provider's conventional variable.
func (c *Config) resolveAPIKey() {
	if strings.TrimSpace(c.AI.APIKey) != "" {
		return
	}
	switch strings.ToLower(c.AI.Provider) {
	case "anthropic":
		c.AI.APIKey = c.AI.AnthropicKey
	default:
		c.AI.APIKey = c.AI.OpenAIKey
	}
}

// Validate fails fast on settings the service cannot start with. Every
// error matches compliance.ErrConfiguration.
func (c *Config) Validate() error {
	var problems []string
	add := func(s string) { problems = append(problems, s) }

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadMB <= 0 {
		add("server.max_upload_mb must be positive")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		add("server rate limits must not be negative")
	}

	switch strings.ToLower(c.AI.Provider) {
	case "openai", "anthropic":
	default:
		add("ai.provider must be openai or anthropic")
	}
	if strings.TrimSpace(c.AI.APIKey) == "" {
		add("ai.api_key is required")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		add("ai.temperature must be between 0 and 2")
	}
	if c.AI.TopP <= 0 || c.AI.TopP > 1 {
		add("ai.top_p must be in (0, 1]")
	}
	if c.AI.MaxOutputTokens <= 0 {
		add("ai.max_output_tokens must be positive")
	}
	if c.AI.Timeout <= 0 {
		add("ai.timeout must be positive")
	}

	if c.Analysis.MaxDocumentChars <= 0 {
		add("analysis.max_document_chars must be positive")
	}
	switch strings.ToLower(c.Analysis.OversizePolicy) {
	case "", "truncate", "reject":
	default:
		add("analysis.oversize_policy must be truncate or reject")
	}
	if c.Analysis.MaxAttempts < 1 {
		add("analysis.max_attempts must be at least 1")
	}
	if c.Analysis.MaxConcurrent < 1 {
		add("analysis.max_concurrent must be at least 1")
	}

	switch strings.ToLower(c.Store.Driver) {
	case "", "none":
	case "mysql", "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			add("store.dsn is required for driver " + c.Store.Driver)
		}
	default:
		add("store.driver must be none, mysql or postgres")
	}

	if c.Archive.Enabled && (c.Archive.Minio.Endpoint == "" || c.Archive.Minio.Bucket == "") {
		add("archive.minio.endpoint and archive.minio.bucket are required when archive is enabled")
	}

	if len(problems) > 0 {
		return eris.Wrapf(compliance.ErrConfiguration, "%s", strings.Join(problems, "; "))
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
