package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config enthält alle Konfigurationseinstellungen
type Config struct {
	// Server-Einstellungen
	ServerPort    string `json:"server_port" validate:"required,numeric"`
	SessionSecret string `json:"session_secret" validate:"required,min=16"`
	DemoUserID    string `json:"demo_user_id" validate:"required"`

	// Datenbank
	DatabaseDriver string `json:"database_driver" validate:"oneof=sqlite postgres"`
	DatabasePath   string `json:"database_path" validate:"required_if=DatabaseDriver sqlite"`
	DatabaseURL    string `json:"database_url" validate:"required_if=DatabaseDriver postgres"`

	// Cache und Events, leer bedeutet In-Memory
	RedisURL     string   `json:"redis_url"`
	KafkaBrokers []string `json:"kafka_brokers"`
	EventsTopic  string   `json:"events_topic" validate:"required"`

	// LLM-Einstellungen
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url" validate:"omitempty,url"`
	ChatModel     string `json:"chat_model" validate:"required"`
	ImageModel    string `json:"image_model" validate:"required"`
	SpeechModel   string `json:"speech_model" validate:"required"`
	SpeechVoice   string `json:"speech_voice" validate:"required"`
	MaxConcurrent int    `json:"max_concurrent" validate:"min=1,max=16"`

	// Logging
	LogFormat string `json:"log_format" validate:"oneof=json text"`
	LogLevel  string `json:"log_level" validate:"oneof=debug info warn error"`

	// Lern-Einstellungen
	TheoryCacheMinutes int `json:"theory_cache_minutes" validate:"min=0"`
	SessionIdleMinutes int `json:"session_idle_minutes" validate:"min=0"`
}

// Default gibt die Standardkonfiguration zurück
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		SessionSecret:      "polnischlernen-dev-secret",
		DemoUserID:         "user-1",
		DatabaseDriver:     "sqlite",
		DatabasePath:       "polnischlernen.db",
		EventsTopic:        "lernfortschritt",
		ChatModel:          "gpt-4o-mini",
		ImageModel:         "dall-e-3",
		SpeechModel:        "gpt-4o-mini-tts",
		SpeechVoice:        "nova",
		MaxConcurrent:      3,
		LogFormat:          "text",
		LogLevel:           "info",
		TheoryCacheMinutes: 60,
		SessionIdleMinutes: 120,
	}
}

// Load lädt die Konfiguration aus einer Datei.
// Fehlt die Datei, bleibt es bei den Standardwerten und ein Fehler wird zurückgegeben.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadEnv liest eine .env-Datei (falls vorhanden) und überschreibt Werte aus der Umgebung
func (c *Config) LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(".env laden: %w", err)
	}
	c.ApplyEnv(os.Getenv)
	return nil
}

// ApplyEnv übernimmt gesetzte Umgebungsvariablen
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(key string, target *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*target = v
		}
	}

	set("PORT", &c.ServerPort)
	set("SESSION_SECRET", &c.SessionSecret)
	set("DEMO_USER_ID", &c.DemoUserID)
	set("DATABASE_DRIVER", &c.DatabaseDriver)
	set("DATABASE_PATH", &c.DatabasePath)
	set("DATABASE_URL", &c.DatabaseURL)
	set("REDIS_URL", &c.RedisURL)
	set("EVENTS_TOPIC", &c.EventsTopic)
	set("OPENAI_API_KEY", &c.OpenAIAPIKey)
	set("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	set("CHAT_MODEL", &c.ChatModel)
	set("IMAGE_MODEL", &c.ImageModel)
	set("SPEECH_MODEL", &c.SpeechModel)
	set("SPEECH_VOICE", &c.SpeechVoice)
	set("LOG_FORMAT", &c.LogFormat)
	set("LOG_LEVEL", &c.LogLevel)

	if v := strings.TrimSpace(getenv("KAFKA_BROKERS")); v != "" {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
}

// Validate prüft die Konfiguration anhand der Struct-Tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("ungültige Konfiguration: %s", strings.Join(msgs, ", "))
		}
		return err
	}
	return nil
}

// Save speichert die Konfiguration in eine Datei
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
