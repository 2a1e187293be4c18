package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yuibot/yui/pkg/yui/channels"
	"github.com/yuibot/yui/pkg/yui/channels/telegram"
	"github.com/yuibot/yui/pkg/yui/orchestrator"
	"github.com/yuibot/yui/pkg/yui/persona"
	"github.com/yuibot/yui/pkg/yui/provider"
	"github.com/yuibot/yui/pkg/yui/scheduler"
	"github.com/yuibot/yui/pkg/yui/store"
)

// Bot é a Yui montada: escuta os canais, roteia comandos e mensagens
// livres e roda o scheduler.
type Bot struct {
	cfg    *Config
	logger *slog.Logger

	store      *store.SQLite
	personas   *persona.Registry
	orch       *orchestrator.Orchestrator
	commands   *Commands
	channelMgr *channels.Manager
	sched      *scheduler.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	loopWg sync.WaitGroup
}

// New monta a Yui a partir da configuração. O fallback só entra se estiver
// habilitado e com credencial; sem ele, a Yui segue só com o primário.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bot")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	primary := provider.NewOpenAI(provider.OpenAIConfig{
		BaseURL: cfg.Providers.Primary.BaseURL,
		APIKey:  cfg.Providers.Primary.APIKey,
		Model:   cfg.Providers.Primary.Model,
	}, logger)

	var fallback provider.Client
	if cfg.Providers.Fallback.Enabled && cfg.Providers.Fallback.APIKey != "" {
		gemini, err := provider.NewGemini(ctx, provider.GeminiConfig{
			APIKey: cfg.Providers.Fallback.APIKey,
			Model:  cfg.Providers.Fallback.Model,
		}, logger)
		if err != nil {
			// Sem fallback a Yui ainda funciona; só perde a rede de
			// segurança do rate limit.
			logger.Warn("fallback indisponível, seguindo só com o primário", "error", err)
		} else {
			fallback = gemini
		}
	}

	personas := persona.NewRegistry(st, cfg.Persona, logger)
	orch := orchestrator.New(st, personas, primary, fallback, logger)
	commands := NewCommands(st, personas, orch, cfg.Name, logger)

	channelMgr := channels.NewManager(logger)
	if err := channelMgr.Register(telegram.New(cfg.Telegram, logger)); err != nil {
		st.Close()
		return nil, fmt.Errorf("registering telegram channel: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("timezone inválido, usando o local", "timezone", cfg.Timezone, "error", err)
		loc = time.Local
	}

	dispatch := func(ctx context.Context, chatID, text string) error {
		return channelMgr.Send(ctx, "telegram", chatID, &channels.OutgoingMessage{Content: text})
	}
	sched := scheduler.New(st, personas, primary, dispatch, scheduler.Config{
		Probability:   cfg.Scheduler.SpontaneousProbability,
		HistoryWindow: cfg.Scheduler.HistoryWindow,
		Location:      loc,
	}, logger)

	return &Bot{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		personas:   personas,
		orch:       orch,
		commands:   commands,
		channelMgr: channelMgr,
		sched:      sched,
	}, nil
}

// Start conecta os canais, inicia o loop de mensagens e o scheduler.
func (b *Bot) Start() error {
	b.ctx, b.cancel = context.WithCancel(context.Background())

	if err := b.channelMgr.Start(b.ctx); err != nil {
		return fmt.Errorf("starting channels: %w", err)
	}

	b.loopWg.Add(1)
	go b.messageLoop()

	if b.cfg.Scheduler.Enabled {
		if err := b.sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
	}

	b.logger.Info("yui no ar", "name", b.cfg.Name)
	return nil
}

// Stop drena e encerra: para de aceitar trabalho novo, espera o que está
// em voo terminar e só então fecha o store.
func (b *Bot) Stop() {
	b.logger.Info("encerrando")

	if b.cfg.Scheduler.Enabled {
		b.sched.Stop()
	}

	// Stop do manager fecha o canal de mensagens; o loop drena o que
	// restar e sai sozinho.
	b.channelMgr.Stop()
	b.loopWg.Wait()

	if b.cancel != nil {
		b.cancel()
	}

	if err := b.store.Close(); err != nil {
		b.logger.Error("falha ao fechar o store", "error", err)
	}
	b.logger.Info("até logo")
}

// messageLoop consome as mensagens dos canais uma a uma. O processamento
// é sequencial de propósito: dentro de um chat, cada mensagem termina
// (incluindo as escritas no store) antes da próxima começar, o que mantém
// o histórico na ordem de chegada.
func (b *Bot) messageLoop() {
	defer b.loopWg.Done()

	for msg := range b.channelMgr.Messages() {
		b.handleIncoming(msg)
	}
	b.logger.Debug("loop de mensagens encerrado")
}

func (b *Bot) handleIncoming(msg *channels.IncomingMessage) {
	// Mensagens sem texto (figurinhas, fotos) são ignoradas.
	if strings.TrimSpace(msg.Content) == "" {
		return
	}
	// Usuário fora da lista: ignora em silêncio, sem resposta.
	if !b.authorized(msg.From) {
		b.logger.Debug("mensagem de usuário não autorizado ignorada",
			"channel", msg.Channel, "from", msg.From)
		return
	}

	var reply string
	if IsCommand(msg.Content) {
		reply = b.commands.Handle(msg.ChatID, msg.Content)
	} else {
		reply = b.orch.HandleMessage(b.ctx, msg.ChatID, msg.Content)
	}
	if reply == "" {
		return
	}

	if err := b.channelMgr.Send(b.ctx, msg.Channel, msg.ChatID, &channels.OutgoingMessage{
		Content: reply,
	}); err != nil {
		b.logger.Error("falha ao enviar resposta",
			"channel", msg.Channel, "chat_id", msg.ChatID, "error", err)
	}
}

// authorized verifica a lista de usuários permitidos. Lista vazia libera
// todo mundo.
func (b *Bot) authorized(userID string) bool {
	if len(b.cfg.Access.AllowedUsers) == 0 {
		return true
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false
	}
	for _, allowed := range b.cfg.Access.AllowedUsers {
		if id == allowed {
			return true
		}
	}
	return false
}
