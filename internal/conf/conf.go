package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/postworthy/postbot/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Slack configuration
	Slack SlackConfig

	// Analysis model configuration
	Analysis AnalysisConfig

	// Buffer configuration
	Buffer BufferConfig

	// Duplicate detection configuration
	Dedup DedupConfig

	// Scheduler configuration
	Scheduler SchedulerConfig

	// HTTP API configuration
	API APIConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Debug mode
	Debug bool
}

// SlackConfig contains Slack credentials
type SlackConfig struct {
	AppToken string // xapp- token for Socket Mode
	BotToken string // xoxb- token for the Web API
}

// AnalysisConfig contains analysis model settings
type AnalysisConfig struct {
	APIKey  string
	BaseURL string // optional OpenAI-compatible endpoint
	Model   string
}

// BufferConfig contains buffer settings
type BufferConfig struct {
	WindowHours      int
	MinMessages      int // minimum candidate messages before an analysis runs
	MinMessageLength int
}

// DedupConfig contains duplicate detection settings
type DedupConfig struct {
	Threshold   float64
	HistorySize int
}

// SchedulerConfig contains scheduled analysis settings
type SchedulerConfig struct {
	Enabled         bool
	IntervalMinutes int
	LookbackHours   int
	Channels        []string // monitored channels; empty = all with traffic
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	Port int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	promptsConfig, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		fmt.Printf("[Config] Failed to load prompts config: %v, using defaults\n", err)
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Slack: SlackConfig{
			AppToken: os.Getenv("SLACK_APP_TOKEN"),
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
		},
		Analysis: AnalysisConfig{
			APIKey:  os.Getenv("ANALYSIS_API_KEY"),
			BaseURL: os.Getenv("ANALYSIS_BASE_URL"),
			Model:   os.Getenv("ANALYSIS_MODEL"),
		},
		Buffer: BufferConfig{
			WindowHours:      envInt("BUFFER_WINDOW_HOURS", 4),
			MinMessages:      envInt("MIN_MESSAGES", 5),
			MinMessageLength: envInt("MIN_MESSAGE_LENGTH", 5),
		},
		Dedup: DedupConfig{
			Threshold:   envFloat("DUPLICATE_THRESHOLD", usecase.DefaultDuplicateThreshold),
			HistorySize: envInt("SUGGESTION_HISTORY_SIZE", usecase.DefaultHistorySize),
		},
		Scheduler: SchedulerConfig{
			Enabled:         os.Getenv("SCHEDULER_ENABLED") == "true",
			IntervalMinutes: envInt("SCHEDULER_INTERVAL_MINUTES", 60),
			LookbackHours:   envInt("SCHEDULER_LOOKBACK_HOURS", 1),
			Channels:        envList("MONITOR_CHANNELS"),
		},
		API: APIConfig{
			Port: envInt("API_PORT", 9876),
		},
		Prompts: promptsConfig,
		Debug:   os.Getenv("DEBUG") == "true",
	}
}

// ToBufferConfig converts to the buffer usecase configuration
func (c *BufferConfig) ToBufferConfig() usecase.BufferConfig {
	return usecase.BufferConfig{
		Window:           time.Duration(c.WindowHours) * time.Hour,
		MinMessageLength: c.MinMessageLength,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Slack.AppToken == "" || c.Slack.BotToken == "" {
		return &ConfigError{Field: "SLACK_APP_TOKEN/SLACK_BOT_TOKEN", Message: "required"}
	}
	if c.Analysis.APIKey == "" {
		return &ConfigError{Field: "ANALYSIS_API_KEY", Message: "required"}
	}
	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		return &ConfigError{Field: "DUPLICATE_THRESHOLD", Message: "must be in (0, 1]"}
	}
	if c.Buffer.MinMessages < 1 {
		return &ConfigError{Field: "MIN_MESSAGES", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envInt(name string, def int) int {
	if val := os.Getenv(name); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envFloat(name string, def float64) float64 {
	if val := os.Getenv(name); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envList(name string) []string {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
