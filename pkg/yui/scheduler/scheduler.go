// Package scheduler roda a tarefa recorrente da Yui: dispara os
// agendamentos persistidos no horário configurado e, com probabilidade
// pequena por tick, manda mensagens espontâneas para os chats que
// habilitaram isso.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yuibot/yui/pkg/yui/provider"
	"github.com/yuibot/yui/pkg/yui/store"
)

// Prompts sintéticos enviados ao provedor.
const (
	// scheduledPromptPrefix antecede o template do agendamento, formando
	// um pedido de turno único ("crie uma frase motivacional", etc).
	scheduledPromptPrefix = "crie uma "

	spontaneousPrompt = "Mande uma mensagem espontânea e carinhosa para o " +
		"usuário, como se você tivesse lembrado dele do nada. Use o contexto " +
		"recente da conversa se ajudar, mas não responda mensagens antigas."
)

// Store é o subconjunto do store de conversas que o scheduler lê.
type Store interface {
	ListSchedules() ([]store.ScheduleEntry, error)
	DeleteSchedule(id string) error
	SpontaneousChats() ([]string, error)
	LoadHistory(chatID string) ([]store.Message, error)
}

// Personas resolve a instrução de persona de um chat.
type Personas interface {
	Get(chatID string) string
}

// DispatchFunc entrega uma mensagem gerada ao chat via transporte.
type DispatchFunc func(ctx context.Context, chatID, text string) error

// Config ajusta o comportamento do scheduler.
type Config struct {
	// Probability é a chance por tick de disparo espontâneo por chat.
	Probability float64
	// HistoryWindow é quantas mensagens recentes entram no contexto da
	// mensagem espontânea.
	HistoryWindow int
	// Location é o fuso usado para casar hora/minuto dos agendamentos.
	Location *time.Location
}

// DefaultConfig retorna os valores originais da Yui.
func DefaultConfig() Config {
	return Config{
		Probability:   0.01,
		HistoryWindow: 5,
		Location:      time.Local,
	}
}

// Scheduler é a tarefa recorrente. O cron dispara Tick uma vez por minuto;
// Tick também é chamável diretamente com um instante fixo em testes.
type Scheduler struct {
	store    Store
	personas Personas
	client   provider.Client
	dispatch DispatchFunc
	cfg      Config
	logger   *slog.Logger

	// rng é injetável para tornar o disparo espontâneo determinístico
	// em teste.
	rng func() float64

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New cria o scheduler. client é o provedor usado para gerar o conteúdo
// (normalmente o primário).
func New(st Store, personas Personas, client provider.Client, dispatch DispatchFunc, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Probability <= 0 {
		cfg.Probability = DefaultConfig().Probability
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    st,
		personas: personas,
		client:   client,
		dispatch: dispatch,
		cfg:      cfg,
		logger:   logger.With("component", "scheduler"),
		rng:      rand.Float64,
	}
}

// Start registra o tick de minuto em minuto e inicia o cron.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler já está rodando")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(cron.WithLocation(s.cfg.Location))

	_, err := s.cron.AddFunc("* * * * *", func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("pânico no tick do scheduler", "panic", r)
			}
		}()
		s.Tick(s.ctx, time.Now().In(s.cfg.Location))
	})
	if err != nil {
		return fmt.Errorf("registrando tick: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler iniciado", "timezone", s.cfg.Location.String())
	return nil
}

// Stop cancela o contexto e espera o tick em andamento terminar.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler parado")
}

// Tick processa um instante: dispara os agendamentos que casam com
// hora/minuto de now e avalia os disparos espontâneos. Falha em uma
// entrada não interrompe as demais.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.runSchedules(ctx, now)
	s.runSpontaneous(ctx)
}

func (s *Scheduler) runSchedules(ctx context.Context, now time.Time) {
	entries, err := s.store.ListSchedules()
	if err != nil {
		s.logger.Error("falha ao listar agendamentos", "error", err)
		return
	}

	hour, minute := now.Hour(), now.Minute()
	for _, entry := range entries {
		if entry.Hour != hour || entry.Minute != minute {
			continue
		}
		if err := s.fireSchedule(ctx, entry); err != nil {
			s.logger.Error("falha ao disparar agendamento",
				"schedule_id", entry.ID,
				"chat_id", entry.ChatID,
				"error", err,
			)
			continue
		}
		// Entradas "once" são removidas após a entrega, garantindo o
		// disparo único.
		if entry.Frequency == store.FrequencyOnce {
			if err := s.store.DeleteSchedule(entry.ID); err != nil {
				s.logger.Error("falha ao remover agendamento once",
					"schedule_id", entry.ID, "error", err)
			}
		}
	}
}

func (s *Scheduler) fireSchedule(ctx context.Context, entry store.ScheduleEntry) error {
	prompt := scheduledPromptPrefix + entry.Message
	text, err := s.client.Generate(ctx, s.personas.Get(entry.ChatID), []provider.Message{
		{Role: string(store.RoleUser), Content: prompt},
	})
	if err != nil {
		return fmt.Errorf("gerando conteúdo: %w", err)
	}
	if err := s.dispatch(ctx, entry.ChatID, text); err != nil {
		return fmt.Errorf("enviando mensagem: %w", err)
	}
	s.logger.Info("agendamento disparado",
		"schedule_id", entry.ID,
		"chat_id", entry.ChatID,
		"frequency", string(entry.Frequency),
	)
	return nil
}

func (s *Scheduler) runSpontaneous(ctx context.Context) {
	chats, err := s.store.SpontaneousChats()
	if err != nil {
		s.logger.Error("falha ao listar chats espontâneos", "error", err)
		return
	}

	for _, chatID := range chats {
		// Cada chat sorteia de forma independente, sem cooldown.
		if s.rng() >= s.cfg.Probability {
			continue
		}
		if err := s.fireSpontaneous(ctx, chatID); err != nil {
			s.logger.Error("falha ao disparar mensagem espontânea",
				"chat_id", chatID, "error", err)
		}
	}
}

func (s *Scheduler) fireSpontaneous(ctx context.Context, chatID string) error {
	history, err := s.store.LoadHistory(chatID)
	if err != nil {
		return fmt.Errorf("carregando histórico: %w", err)
	}
	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}

	msgs := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, provider.Message{Role: string(store.RoleUser), Content: spontaneousPrompt})

	text, err := s.client.Generate(ctx, s.personas.Get(chatID), msgs)
	if err != nil {
		return fmt.Errorf("gerando conteúdo: %w", err)
	}
	if err := s.dispatch(ctx, chatID, text); err != nil {
		return fmt.Errorf("enviando mensagem: %w", err)
	}
	s.logger.Info("mensagem espontânea disparada", "chat_id", chatID)
	return nil
}
