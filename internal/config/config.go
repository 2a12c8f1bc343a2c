package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgLogger "github.com/fpt/discord-chat/pkg/logger"
)

// Fetch limit bounds. Values outside these ranges fall back to the default
// rather than failing, so a bad environment cannot push the fetcher past
// what the backend tolerates.
const (
	DefaultMaxMessages = 1000
	MinMaxMessages     = 100
	MaxMaxMessages     = 10000

	DefaultMaxConcurrent = 5
	MinMaxConcurrent     = 1
	MaxMaxConcurrent     = 20

	DefaultTimeoutSeconds = 60
	MinTimeoutSeconds     = 10
	MaxTimeoutSeconds     = 300

	DefaultHours = 6
	MinHours     = 1
	MaxHours     = 168
)

// Discord bot tokens are ~70 chars; anything shorter than this is garbage.
const minTokenLength = 50

// Environment variables recognized by the application.
const (
	EnvBotToken      = "DISCORD_BOT_TOKEN"
	EnvMaxMessages   = "DISCORD_CHAT_MAX_MESSAGES"
	EnvMaxConcurrent = "DISCORD_CHAT_MAX_CONCURRENT"
	EnvTimeout       = "DISCORD_CHAT_TIMEOUT"
	EnvSecurityLog   = "DISCORD_CHAT_SECURITY_LOG"
)

// Settings represents the main application settings
type Settings struct {
	LLM   LLMSettings   `json:"llm"`
	Fetch FetchSettings `json:"fetch"`
	Log   LogSettings   `json:"log"`
}

// LLMSettings contains digest provider configuration
type LLMSettings struct {
	Backend   string `json:"backend,omitempty"`    // "claude", "openai", "gemini", or "ollama"; empty = auto-select
	Model     string `json:"model,omitempty"`      // model name override (empty = provider default)
	MaxTokens int    `json:"max_tokens,omitempty"` // maximum tokens for digest responses (0 = provider default)
}

// FetchSettings contains message-fetch limits
type FetchSettings struct {
	MaxMessagesPerChannel int `json:"max_messages_per_channel"`
	MaxConcurrentChannels int `json:"max_concurrent_channels"`
	OperationTimeoutSecs  int `json:"operation_timeout_seconds"`
	DefaultHours          int `json:"default_hours"`
}

// LogSettings contains logging configuration
type LogSettings struct {
	Level       string `json:"level"`
	SecurityLog string `json:"security_log,omitempty"` // audit log path (empty = ~/.discord-chat/security.log)
}

// DefaultSettings returns default application settings
func DefaultSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Backend:   "",
			Model:     "",
			MaxTokens: 0,
		},
		Fetch: FetchSettings{
			MaxMessagesPerChannel: DefaultMaxMessages,
			MaxConcurrentChannels: DefaultMaxConcurrent,
			OperationTimeoutSecs:  DefaultTimeoutSeconds,
			DefaultHours:          DefaultHours,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// DefaultSettingsPath returns ~/.discord-chat/settings.json, or a relative
// fallback when the home directory cannot be determined.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".discord-chat", "settings.json")
	}
	return filepath.Join(home, ".discord-chat", "settings.json")
}

// LoadSettings loads application settings from a JSON file. An empty path
// means the default location. A missing file is created with defaults; a
// malformed file falls back to defaults. Environment overrides are applied
// after the file is read.
func LoadSettings(configPath string) (*Settings, error) {
	if configPath == "" {
		configPath = DefaultSettingsPath()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			settings := DefaultSettings()
			if saveErr := SaveSettings(configPath, settings); saveErr == nil {
				pkgLogger.NewComponentLogger("settings").Info("Created default settings file", "path", configPath)
			}
			applyEnvOverrides(settings)
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := &Settings{}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", configPath, err)
	}

	applyDefaults(settings)
	applyEnvOverrides(settings)
	return settings, nil
}

// SaveSettings saves application settings to a JSON file
func SaveSettings(configPath string, settings *Settings) error {
	if configPath == "" {
		configPath = DefaultSettingsPath()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// applyDefaults fills in missing fields and pulls out-of-range limits back
// to their defaults
func applyDefaults(settings *Settings) {
	defaults := DefaultSettings()

	settings.Fetch.MaxMessagesPerChannel = clampOrDefault(
		settings.Fetch.MaxMessagesPerChannel, DefaultMaxMessages, MinMaxMessages, MaxMaxMessages)
	settings.Fetch.MaxConcurrentChannels = clampOrDefault(
		settings.Fetch.MaxConcurrentChannels, DefaultMaxConcurrent, MinMaxConcurrent, MaxMaxConcurrent)
	settings.Fetch.OperationTimeoutSecs = clampOrDefault(
		settings.Fetch.OperationTimeoutSecs, DefaultTimeoutSeconds, MinTimeoutSeconds, MaxTimeoutSeconds)
	settings.Fetch.DefaultHours = clampOrDefault(
		settings.Fetch.DefaultHours, DefaultHours, MinHours, MaxHours)

	if settings.Log.Level == "" {
		settings.Log.Level = defaults.Log.Level
	}
}

// applyEnvOverrides lets environment variables override the fetch limits.
// Invalid or out-of-range values leave the current setting untouched.
func applyEnvOverrides(settings *Settings) {
	settings.Fetch.MaxMessagesPerChannel = envInt(
		EnvMaxMessages, settings.Fetch.MaxMessagesPerChannel, MinMaxMessages, MaxMaxMessages)
	settings.Fetch.MaxConcurrentChannels = envInt(
		EnvMaxConcurrent, settings.Fetch.MaxConcurrentChannels, MinMaxConcurrent, MaxMaxConcurrent)
	settings.Fetch.OperationTimeoutSecs = envInt(
		EnvTimeout, settings.Fetch.OperationTimeoutSecs, MinTimeoutSeconds, MaxTimeoutSeconds)
}

// envInt reads an integer environment variable, falling back to def when the
// variable is unset, not a number, or outside [min, max]. Boundary values are
// accepted.
func envInt(name string, def, min, max int) int {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	if v < min || v > max {
		return def
	}
	return v
}

func clampOrDefault(v, def, min, max int) int {
	if v == 0 {
		return def
	}
	if v < min || v > max {
		return def
	}
	return v
}

// BotToken reads and validates the Discord bot token from the environment.
func BotToken() (string, error) {
	token := strings.TrimSpace(os.Getenv(EnvBotToken))
	if token == "" {
		return "", fmt.Errorf("%s environment variable is required", EnvBotToken)
	}
	if len(token) < minTokenLength {
		return "", fmt.Errorf("%s is too short to be a valid bot token", EnvBotToken)
	}
	return token, nil
}

// SecurityLogPath resolves the audit log destination: environment variable
// first, then settings, then ~/.discord-chat/security.log.
func (s *Settings) SecurityLogPath() string {
	if p := os.Getenv(EnvSecurityLog); p != "" {
		return p
	}
	if s != nil && s.Log.SecurityLog != "" {
		return s.Log.SecurityLog
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".discord-chat", "security.log")
	}
	return filepath.Join(home, ".discord-chat", "security.log")
}
