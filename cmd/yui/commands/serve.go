package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuibot/yui/pkg/yui/bot"
)

// newServeCmd cria o comando `yui serve` que sobe a bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sobe a Yui conectada ao Telegram",
		Long: `Sobe a Yui como serviço: conecta ao Telegram, processa mensagens
e roda o scheduler de mensagens agendadas e espontâneas.

Exemplos:
  yui serve
  yui serve --config ./yui.yaml --verbose`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	// ── Logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	// Audita ANTES de resolver — olha os valores crus do arquivo.
	bot.AuditSecrets(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := bot.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build bot: %w", err)
	}

	if err := b.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	logger.Info("Yui rodando. Ctrl+C para parar.",
		"name", cfg.Name,
		"timezone", cfg.Timezone,
		"scheduler", cfg.Scheduler.Enabled,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("sinal de encerramento recebido, parando...")

	// Encerramento com timeout.
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("encerramento completo")
	case <-time.After(10 * time.Second):
		logger.Warn("encerramento estourou 10s, saindo à força")
	}

	return nil
}

// resolveConfig carrega a config do caminho explícito ou dos lugares
// usuais; sem arquivo nenhum, sobe com os defaults (segredos via env).
func resolveConfig(cmd *cobra.Command) (*bot.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := bot.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := bot.FindConfigFile(); found != "" {
		cfg, err := bot.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config carregada", "path", found)
		return cfg, nil
	}

	slog.Info("nenhum arquivo de configuração encontrado, usando defaults")
	cfg := bot.DefaultConfig()
	bot.ResolveSecrets(cfg)
	return cfg, nil
}
