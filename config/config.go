package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/dyike/MacroAgent/consts"
)

// ErrMissingKey is returned by Validate when a mandatory credential is unset.
var ErrMissingKey = errors.New("missing required key")

type Config struct {
	ProjectDir string `json:"project_dir"`
	// ResultsDir receives a local copy of every uploaded report; empty
	// disables the copy.
	ResultsDir  string `json:"results_dir"`
	CatalogPath string `json:"catalog_path"`

	// Statistics APIs
	ECOSAPIKey       string        `json:"-"`
	FREDAPIKey       string        `json:"-"`
	ECOSBaseURL      string        `json:"ecos_base_url" default:"https://ecos.bok.or.kr/api" validate:"url"`
	FREDBaseURL      string        `json:"fred_base_url" default:"https://api.stlouisfed.org" validate:"url"`
	WorldBankBaseURL string        `json:"worldbank_base_url" default:"https://api.worldbank.org" validate:"url"`
	HTTPTimeout      time.Duration `json:"http_timeout" default:"30s" validate:"gt=0"`
	MaxRetries       int           `json:"max_retries" default:"3" validate:"min=1,max=10"`
	RetryDelay       time.Duration `json:"retry_delay" default:"1s" validate:"gte=0"`
	Throttle         time.Duration `json:"throttle" default:"100ms" validate:"gte=0"`

	// Report generation
	LLMProvider        string  `json:"llm_provider" default:"gemini" validate:"oneof=gemini openai deepseek"`
	LLMModel           string  `json:"llm_model"`
	LLMBaseURL         string  `json:"llm_base_url"`
	GeminiAPIKey       string  `json:"-"`
	OpenAIAPIKey       string  `json:"-"`
	DeepSeekAPIKey     string  `json:"-"`
	ReportTemperature  float32 `json:"report_temperature" default:"0.4" validate:"gte=0,lte=2"`
	SummaryTemperature float32 `json:"summary_temperature" default:"0.3" validate:"gte=0,lte=2"`
	ThinkingLevel      string  `json:"thinking_level" default:"low" validate:"omitempty,oneof=low high"`
	SearchGrounding    bool    `json:"search_grounding" default:"true"`
	Summaries          bool    `json:"summaries" default:"true"`

	// Object storage
	S3Endpoint         string `json:"s3_endpoint" default:"s3.amazonaws.com" validate:"required"`
	S3UseSSL           bool   `json:"s3_use_ssl" default:"true"`
	AWSRegion          string `json:"aws_region" default:"ap-northeast-2"`
	S3Bucket           string `json:"s3_bucket" default:"quartz-bucket" validate:"required"`
	S3Folder           string `json:"s3_folder" default:"macro-analysis/"`
	AWSAccessKeyID     string `json:"-"`
	AWSSecretAccessKey string `json:"-"`

	// Logging
	LogLevel  string `json:"log_level" default:"info"`
	LogFormat string `json:"log_format" default:"console" validate:"oneof=console json"`
	Debug     bool   `json:"debug"`

	// Serve mode
	ServerAddr       string        `json:"server_addr" default:":8001"`
	ScheduleInterval time.Duration `json:"schedule_interval" default:"12h" validate:"gt=0"`
	SettleDelay      time.Duration `json:"settle_delay" default:"30s" validate:"gte=0"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port" default:"52538"`
}

// New returns a Config populated only from struct defaults.
func New() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{ProjectDir: currentDir}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// DefaultConfig returns the defaults overridden by .env and the process
// environment.
func DefaultConfig() *Config {
	cfg := New()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	envString("PROJECT_DIR", &c.ProjectDir)
	if val, ok := os.LookupEnv("MACRO_RESULTS_DIR"); ok {
		c.ResultsDir = val
	}
	envString("MACRO_CATALOG_PATH", &c.CatalogPath)

	envString("ECOS_API_KEY", &c.ECOSAPIKey)
	envString("FRED_API_KEY", &c.FREDAPIKey)
	envString("ECOS_BASE_URL", &c.ECOSBaseURL)
	envString("FRED_BASE_URL", &c.FREDBaseURL)
	envString("WORLDBANK_BASE_URL", &c.WorldBankBaseURL)
	envDuration("MACRO_HTTP_TIMEOUT", &c.HTTPTimeout)
	envInt("MACRO_MAX_RETRIES", &c.MaxRetries)
	envDuration("MACRO_RETRY_DELAY", &c.RetryDelay)
	envDuration("MACRO_THROTTLE", &c.Throttle)

	envString("LLM_PROVIDER", &c.LLMProvider)
	envString("LLM_MODEL", &c.LLMModel)
	envString("LLM_BASE_URL", &c.LLMBaseURL)
	envString("GEMINI_API_KEY", &c.GeminiAPIKey)
	envString("OPENAI_API_KEY", &c.OpenAIAPIKey)
	envString("DEEPSEEK_API_KEY", &c.DeepSeekAPIKey)
	if val := os.Getenv("REPORT_TEMPERATURE"); val != "" {
		if v, err := strconv.ParseFloat(val, 32); err == nil {
			c.ReportTemperature = float32(v)
		}
	}
	if val := os.Getenv("SUMMARY_TEMPERATURE"); val != "" {
		if v, err := strconv.ParseFloat(val, 32); err == nil {
			c.SummaryTemperature = float32(v)
		}
	}
	envString("THINKING_LEVEL", &c.ThinkingLevel)
	envBool("SEARCH_GROUNDING", &c.SearchGrounding)
	envBool("MACRO_SUMMARIES", &c.Summaries)

	envString("S3_ENDPOINT", &c.S3Endpoint)
	envBool("S3_USE_SSL", &c.S3UseSSL)
	envString("AWS_REGION", &c.AWSRegion)
	envString("S3_BUCKET_NAME", &c.S3Bucket)
	envString("S3_FOLDER", &c.S3Folder)
	envString("AWS_ACCESS_KEY_ID", &c.AWSAccessKeyID)
	envString("AWS_SECRET_ACCESS_KEY", &c.AWSSecretAccessKey)

	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
	envBool("MACRO_DEBUG", &c.Debug)

	envString("SERVER_ADDR", &c.ServerAddr)
	envDuration("SCHEDULE_INTERVAL", &c.ScheduleInterval)
	envDuration("SETTLE_DELAY", &c.SettleDelay)

	envBool("EINO_DEBUG_ENABLED", &c.EinoDebugEnabled)
	envInt("EINO_DEBUG_PORT", &c.EinoDebugPort)
}

var validate = validator.New()

// Validate checks field ranges and the credentials the selected provider
// needs. Missing mandatory keys wrap ErrMissingKey.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var missing []string
	if c.ECOSAPIKey == "" {
		missing = append(missing, "ECOS_API_KEY")
	}
	if key, env := c.LLMAPIKey(); key == "" {
		missing = append(missing, env)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}
	return nil
}

// LLMAPIKey returns the key for the selected provider and the environment
// variable it is read from.
func (c *Config) LLMAPIKey() (string, string) {
	switch c.LLMProvider {
	case consts.LLMOpenAI:
		return c.OpenAIAPIKey, "OPENAI_API_KEY"
	case consts.LLMDeepSeek:
		return c.DeepSeekAPIKey, "DEEPSEEK_API_KEY"
	default:
		return c.GeminiAPIKey, "GEMINI_API_KEY"
	}
}

// ModelName returns LLMModel, or the provider's default model when unset.
func (c *Config) ModelName() string {
	if c.LLMModel != "" {
		return c.LLMModel
	}
	switch c.LLMProvider {
	case consts.LLMOpenAI:
		return "gpt-4o"
	case consts.LLMDeepSeek:
		return "deepseek-chat"
	default:
		return "gemini-3-pro-preview"
	}
}

// HasFRED reports whether the optional FRED key is configured.
func (c *Config) HasFRED() bool {
	return c.FREDAPIKey != ""
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			*dst = v
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			*dst = v
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if v, err := time.ParseDuration(val); err == nil {
			*dst = v
		}
	}
}
