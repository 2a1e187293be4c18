// Package bot amarra os componentes da Yui: store, provedores, persona,
// orquestrador, scheduler e canais, além da configuração e dos comandos.
package bot

import (
	"github.com/yuibot/yui/pkg/yui/channels/telegram"
)

// Config é a configuração completa da Yui, carregada de YAML.
type Config struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Timezone string `yaml:"timezone"`

	// Persona sobrescreve a instrução padrão aplicada a chats sem
	// persona própria.
	Persona string `yaml:"persona"`

	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	Telegram  telegram.Config `yaml:"telegram"`
	Access    AccessConfig    `yaml:"access"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ProvidersConfig struct {
	Primary  PrimaryConfig  `yaml:"primary"`
	Fallback FallbackConfig `yaml:"fallback"`
}

// PrimaryConfig configura o provedor principal (API compatível com OpenAI).
type PrimaryConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// FallbackConfig configura o provedor reserva (Gemini). Desabilitado, o
// rate limit do primário vira só uma desculpa.
type FallbackConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// AccessConfig lista quem pode falar com a Yui. Vazio significa aberto.
type AccessConfig struct {
	AllowedUsers []int64 `yaml:"allowed_users"`
}

type SchedulerConfig struct {
	Enabled                bool    `yaml:"enabled"`
	SpontaneousProbability float64 `yaml:"spontaneous_probability"`
	HistoryWindow          int     `yaml:"history_window"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text ou json
}

// DefaultConfig retorna a configuração padrão da Yui.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Yui",
		Language: "pt-BR",
		Timezone: "America/Sao_Paulo",
		Database: DatabaseConfig{
			Path: "./data/yui.db",
		},
		Providers: ProvidersConfig{
			Primary: PrimaryConfig{
				Model: "gpt-4o-mini",
			},
			Fallback: FallbackConfig{
				Enabled: true,
				Model:   "gemini-2.0-flash",
			},
		},
		Telegram: telegram.DefaultConfig(),
		Scheduler: SchedulerConfig{
			Enabled:                true,
			SpontaneousProbability: 0.01,
			HistoryWindow:          5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
