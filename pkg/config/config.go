package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Storage    StorageConfig
	Pipeline   PipelineConfig
	Transcribe TranscribeConfig
	Stream     StreamConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	FrontendOrigin string
	APIBaseURL     string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

// StorageConfig governs the artifact store (canvas snapshots, audio recordings).
type StorageConfig struct {
	UploadDir        string
	MaxUploadSizeMiB int
}

// PipelineConfig governs the end-to-end grading run budget and worker pool.
type PipelineConfig struct {
	TimeoutSeconds int
	WorkerPoolSize int
}

// TranscribeConfig governs the transcription stage's own, tighter budget.
type TranscribeConfig struct {
	TimeoutSeconds int
	Provider       string
	APIKey         string
}

// StreamConfig governs the SSE progress stream served to the frontend.
type StreamConfig struct {
	PollIntervalSeconds float64
	MaxDurationSeconds  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/grading-pipeline")

	viper.SetEnvPrefix("GRADEPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)
	viper.SetDefault("server.frontendOrigin", "http://localhost:5173")
	viper.SetDefault("server.apiBaseURL", "http://localhost:8000")

	viper.SetDefault("sqlite.path", "./data/grading.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", false)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("storage.uploadDir", "./storage")
	viper.SetDefault("storage.maxUploadSizeMiB", 10)

	viper.SetDefault("pipeline.timeoutSeconds", 300)
	viper.SetDefault("pipeline.workerPoolSize", 4)

	viper.SetDefault("transcribe.timeoutSeconds", 120)
	viper.SetDefault("transcribe.provider", "whisper")

	viper.SetDefault("stream.pollIntervalSeconds", 0.5)
	viper.SetDefault("stream.maxDurationSeconds", 600)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
