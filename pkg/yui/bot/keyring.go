// Package bot – keyring.go resolve segredos pelo keyring nativo do
// sistema (Linux: Secret Service, macOS: Keychain, Windows: Credential
// Manager).
//
// Prioridade de resolução:
//  1. Keyring do sistema (criptografado pelo SO)
//  2. Variável de ambiente YUI_* dedicada
//  3. Variável de ambiente genérica (OPENAI_API_KEY, GEMINI_API_KEY, ...)
//  4. Valor do arquivo de configuração (texto plano, menos seguro)
package bot

import (
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService é o nome do serviço usado no keyring do sistema.
	keyringService = "yui"

	keyringOpenAIKey     = "openai_api_key"
	keyringGeminiKey     = "gemini_api_key"
	keyringTelegramToken = "telegram_token"
)

// StoreKeyring grava um segredo no keyring do sistema.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring lê um segredo do keyring do sistema; vazio se não existir.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring remove um segredo do keyring do sistema.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// ResolveSecrets preenche os segredos da config seguindo a cadeia de
// prioridade. Valores já presentes (e não-placeholder) são mantidos só se
// nada mais forte existir.
func ResolveSecrets(cfg *Config) {
	loadEnvFiles()
	cfg.Providers.Primary.APIKey = resolveSecret(
		cfg.Providers.Primary.APIKey,
		keyringOpenAIKey,
		"YUI_OPENAI_API_KEY", "OPENAI_API_KEY",
	)
	cfg.Providers.Fallback.APIKey = resolveSecret(
		cfg.Providers.Fallback.APIKey,
		keyringGeminiKey,
		"YUI_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	)
	cfg.Telegram.Token = resolveSecret(
		cfg.Telegram.Token,
		keyringTelegramToken,
		"YUI_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN",
	)
}

func resolveSecret(configValue, keyringKey string, envVars ...string) string {
	if val := GetKeyring(keyringKey); val != "" {
		return val
	}
	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			return val
		}
	}
	if isEnvReference(configValue) {
		// Referência não expandida: variável não definida.
		return ""
	}
	return configValue
}
