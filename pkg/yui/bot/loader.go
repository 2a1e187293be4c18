// Package bot – loader.go carrega a configuração de YAML com expansão de
// variáveis de ambiente e arquivos .env.
package bot

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern casa ${VAR_NAME} ou $VAR_NAME em valores da config.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadConfigFromFile lê e interpreta um arquivo YAML de configuração.
// Carrega .env automaticamente e expande variáveis de ambiente.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg, err := ParseConfig([]byte(expanded))
	if err != nil {
		return nil, err
	}

	ResolveSecrets(cfg)
	checkFilePermissions(path)

	return cfg, nil
}

// ParseConfig interpreta YAML sobre os defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// FindConfigFile procura o arquivo de configuração nos lugares usuais.
func FindConfigFile() string {
	candidates := []string{
		"yui.yaml",
		"yui.yml",
		"config.yaml",
		"config.yml",
		"configs/yui.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// AuditSecrets avisa sobre segredos escritos direto no YAML.
func AuditSecrets(cfg *Config, logger *slog.Logger) {
	check := func(value, envVar, field string) {
		if value != "" && !isEnvReference(value) && looksLikeRealKey(value) {
			logger.Warn("segredo aparenta estar fixo no arquivo de configuração",
				"field", field,
				"hint", fmt.Sprintf("use '%s: ${%s}' no YAML", field, envVar),
			)
		}
	}
	check(cfg.Providers.Primary.APIKey, "YUI_OPENAI_API_KEY", "providers.primary.api_key")
	check(cfg.Providers.Fallback.APIKey, "YUI_GEMINI_API_KEY", "providers.fallback.api_key")
	check(cfg.Telegram.Token, "YUI_TELEGRAM_TOKEN", "telegram.token")
}

// ---------- Interno ----------

func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		// godotenv.Load não sobrescreve variáveis já definidas.
		_ = godotenv.Load(f)
	}
}

// expandEnvVars substitui referências ${VAR} e $VAR pelo valor da
// variável de ambiente; referências não definidas ficam como estão.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func isEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}

// looksLikeRealKey heurística: detecta chaves de verdade (não
// placeholders) para o aviso do AuditSecrets.
func looksLikeRealKey(s string) bool {
	if isEnvReference(s) {
		return false
	}
	if strings.HasPrefix(s, "sk-") || strings.HasPrefix(s, "AIza") {
		return true
	}
	return len(s) >= 32
}

// checkFilePermissions avisa se o arquivo de configuração está legível
// por outros usuários.
func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o044 != 0 {
		slog.Warn("arquivo de configuração legível por outros usuários",
			"path", path,
			"mode", info.Mode().Perm().String(),
			"hint", "chmod 600 "+path,
		)
	}
}
