package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Voice  VoiceConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Voice: voice, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	AllowedOrigins  map[string]struct{}
	ShutdownTimeout time.Duration
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	shutdown, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		AllowedOrigins:  parseListEnv("CORS_ALLOWED_ORIGINS"),
		ShutdownTimeout: shutdown,
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string

	// Ark
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// ArkEnabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// GeminiEnabled reports whether a Gemini key and model are configured.
func (c AIConfig) GeminiEnabled() bool {
	return c.GeminiAPIKey != "" && c.GeminiModel != ""
}

// Enabled 表示是否存在可用的生成后端。
func (c AIConfig) Enabled() bool {
	return c.ResolvedProvider() != ""
}

// ResolvedProvider returns the backend to use: the explicit AI_PROVIDER when its
// credentials are present, otherwise the first configured one. Empty means none.
func (c AIConfig) ResolvedProvider() string {
	switch c.Provider {
	case ProviderArk:
		if c.ArkEnabled() {
			return ProviderArk
		}
		return ""
	case ProviderGemini:
		if c.GeminiEnabled() {
			return ProviderGemini
		}
		return ""
	}
	if c.ArkEnabled() {
		return ProviderArk
	}
	if c.GeminiEnabled() {
		return ProviderGemini
	}
	return ""
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	if provider != "" && provider != ProviderArk && provider != ProviderGemini {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want %q or %q", provider, ProviderArk, ProviderGemini)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	retries := 1
	if override, err := parseOptionalIntEnv("AI_MAX_RETRIES"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 {
			retries = 0
		} else {
			retries = *override
		}
	}

	retryDelay, err := parseDurationEnv("AI_RETRY_BASE_DELAY", 300*time.Millisecond)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:       provider,
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		Timeout:        timeout,
		MaxRetries:     retries,
		RetryBaseDelay: retryDelay,
	}, nil
}

// VoiceConfig 描述语音会话协议相关配置
type VoiceConfig struct {
	CueDelay         time.Duration
	HistoryLimit     int
	SignalFrameBytes int
	MaxMessageBytes  int64
	InboxSize        int
}

func loadVoiceConfig() (VoiceConfig, error) {
	cueDelay, err := parseDurationEnv("VOICE_CUE_DELAY", 1500*time.Millisecond)
	if err != nil {
		return VoiceConfig{}, err
	}

	history, err := parsePositiveIntEnv("VOICE_HISTORY_LIMIT", 10)
	if err != nil {
		return VoiceConfig{}, err
	}

	signal, err := parsePositiveIntEnv("VOICE_SIGNAL_FRAME_BYTES", 1024)
	if err != nil {
		return VoiceConfig{}, err
	}

	maxMessage, err := parsePositiveIntEnv("VOICE_MAX_MESSAGE_BYTES", 64*1024)
	if err != nil {
		return VoiceConfig{}, err
	}

	inbox, err := parsePositiveIntEnv("VOICE_INBOX_SIZE", 16)
	if err != nil {
		return VoiceConfig{}, err
	}

	return VoiceConfig{
		CueDelay:         cueDelay,
		HistoryLimit:     history,
		SignalFrameBytes: signal,
		MaxMessageBytes:  int64(maxMessage),
		InboxSize:        inbox,
	}, nil
}

// LogConfig 描述日志输出配置
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text"))
	if format != "text" && format != "json" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q", format)
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: format,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, item := range strings.Split(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = struct{}{}
	}
	return out
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *val)
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
