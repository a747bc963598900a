package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go-guest-registry/extraction"
	"go-guest-registry/logging"
	"go-guest-registry/models"
	redis "go-guest-registry/redis"
)

type ExtractionConfig struct {
	BaseUrl        string  `json:"base_url,omitempty"`
	Model          string  `json:"model,omitempty"`
	Temperature    float32 `json:"temperature,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
}

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// sworn_statement or signature; picks which consent-closure artifact
	// the review step requires
	ClosureStyle string `json:"closure_style,omitempty"`

	SinkUrl            string `json:"sink_url"`
	SinkTimeoutSeconds int    `json:"sink_timeout_seconds,omitempty"`

	ReceiptSecret        string `json:"receipt_secret,omitempty"`
	ReceiptValidityHours int    `json:"receipt_validity_hours,omitempty"`

	ExtractionConfig ExtractionConfig `json:"extraction_config,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		slog.Error("please provide a config path using the --config flag")
		os.Exit(1)
	}

	config, err := readConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to read config file", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logging.InitLogger(config.LogLevel, config.LogFormat)
	slog.Info("Using config", "path", *configPath)

	// the sink endpoint is the whole point of the service; refuse to start
	// without it rather than fail on the first submission
	if config.SinkUrl == "" {
		slog.Error("sink_url is missing from the config and WEBHOOK_URL is not set")
		os.Exit(1)
	}

	closure, err := parseClosureStyle(config.ClosureStyle)
	if err != nil {
		slog.Error("invalid closure_style in config", "error", err)
		os.Exit(1)
	}

	sessionStorage, err := createSessionStorage(&config)
	if err != nil {
		slog.Error("failed to instantiate session storage", "error", err)
		os.Exit(1)
	}

	var receiptCreator ReceiptCreator
	if config.ReceiptSecret == "" {
		slog.Warn("no receipt_secret configured, receipt tokens are disabled")
	} else {
		receiptCreator, err = NewHmacReceiptCreator(config.ReceiptSecret, time.Duration(config.ReceiptValidityHours)*time.Hour)
		if err != nil {
			slog.Error("failed to instantiate receipt creator", "error", err)
			os.Exit(1)
		}
	}

	extractor := extraction.NewClient(extraction.Config{
		BaseURL:     config.ExtractionConfig.BaseUrl,
		Model:       config.ExtractionConfig.Model,
		Temperature: config.ExtractionConfig.Temperature,
		Timeout:     time.Duration(config.ExtractionConfig.TimeoutSeconds) * time.Second,
	})

	sink := NewHTTPSinkClient(config.SinkUrl, time.Duration(config.SinkTimeoutSeconds)*time.Second)
	metrics := NewMetrics()

	serverState := ServerState{
		sessionStorage: sessionStorage,
		orchestrator:   NewOrchestrator(sessionStorage, extractor, sink, receiptCreator, metrics),
		metrics:        metrics,
		closureStyle:   closure,
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	err = server.ListenAndServe()
	if err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&config)
	return config, nil
}

// applyEnvOverrides lets deployment environments inject secrets and endpoints
// without touching the config file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		config.SinkUrl = v
	}
	if v := os.Getenv("RECEIPT_SECRET"); v != "" {
		config.ReceiptSecret = v
	}
	// OPENAI_API_KEY is picked up by the extraction client itself
}

func parseClosureStyle(style string) (models.ClosureStyle, error) {
	switch style {
	case "", string(models.ClosureSwornStatement):
		return models.ClosureSwornStatement, nil
	case string(models.ClosureSignature):
		return models.ClosureSignature, nil
	}
	return "", fmt.Errorf("%v is not a valid closure style", style)
}

func createSessionStorage(config *Config) (SessionStorage, error) {
	if config.StorageType == "redis" {
		slog.Info("Using redis session storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisSessionStorage(client, config.RedisConfig.Namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		slog.Info("Using redis sentinel session storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisSessionStorage(client, config.RedisSentinelConfig.Namespace), nil
	}
	if config.StorageType == "memory" {
		slog.Info("Using in memory session storage")
		return NewInMemorySessionStorage(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
