package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/yuibot/yui/pkg/yui/store"
)

// commandStore é o subconjunto do store usado pelos comandos.
type commandStore interface {
	ClearHistory(chatID string) error
	SaveSchedule(chatID string, hour, minute int, frequency store.Frequency, message string) (string, error)
	ChatSchedules(chatID string) ([]store.ScheduleEntry, error)
	DeleteSchedule(id string) error
	SetSpontaneousEnabled(chatID string, enabled bool) error
}

// personaSetter grava a persona de um chat.
type personaSetter interface {
	Set(chatID, instruction string) error
}

// pendingCanceler descarta uma confirmação de fallback pendente.
type pendingCanceler interface {
	CancelPending(chatID string) bool
}

// Commands interpreta os comandos de barra da Yui. Qualquer comando que
// chegue no meio de uma negociação de fallback cancela a pendência em
// silêncio antes de executar.
type Commands struct {
	store    commandStore
	personas personaSetter
	pending  pendingCanceler
	botName  string
	logger   *slog.Logger
}

// NewCommands cria o interpretador de comandos.
func NewCommands(st commandStore, personas personaSetter, pending pendingCanceler, botName string, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		store:    st,
		personas: personas,
		pending:  pending,
		botName:  botName,
		logger:   logger.With("component", "commands"),
	}
}

// IsCommand reporta se o texto é um comando de barra.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Handle executa o comando e retorna o texto de resposta. Erros de
// validação são devolvidos literalmente ao usuário; erros de persistência
// viram uma resposta genérica e log.
func (c *Commands) Handle(chatID, text string) string {
	if c.pending.CancelPending(chatID) {
		c.logger.Info("pendência de fallback cancelada por comando", "chat_id", chatID)
	}

	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return c.unknownReply()
	}

	// "/comando@YuiBot" também conta em grupos.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/start":
		return fmt.Sprintf("Oi! Eu sou a %s 💖 Pode falar comigo quando quiser. "+
			"Use /agendar para mensagens programadas e /espontanea on para eu "+
			"aparecer de surpresa de vez em quando!", c.botName)

	case "/limpar":
		return c.handleClear(chatID)

	case "/personalidade":
		return c.handlePersona(chatID, args)

	case "/agendar":
		return c.handleSchedule(chatID, args)

	case "/agendamentos":
		return c.handleListSchedules(chatID)

	case "/desagendar":
		return c.handleUnschedule(chatID, args)

	case "/espontanea":
		return c.handleSpontaneous(chatID, args)

	default:
		return c.unknownReply()
	}
}

func (c *Commands) handleClear(chatID string) string {
	if err := c.store.ClearHistory(chatID); err != nil {
		c.logger.Error("falha ao limpar histórico", "chat_id", chatID, "error", err)
		return replyStoreFail
	}
	return "Prontinho! Apaguei nossa conversa 🧹 Podemos começar do zero 💖"
}

func (c *Commands) handlePersona(chatID string, args []string) string {
	if len(args) == 0 {
		return "Me diz como você quer que eu seja! Exemplo:\n" +
			"/personalidade seja uma assistente formal e objetiva"
	}
	instruction := strings.Join(args, " ")
	if err := c.personas.Set(chatID, instruction); err != nil {
		c.logger.Error("falha ao salvar persona", "chat_id", chatID, "error", err)
		return replyStoreFail
	}
	return "Entendido! Vou ser assim daqui pra frente 💖"
}

func (c *Commands) handleSchedule(chatID string, args []string) string {
	if len(args) < 3 {
		return "Uso: /agendar HH:MM frequencia mensagem\n" +
			"Frequências: daily, weekly ou once. Exemplo:\n" +
			"/agendar 08:00 daily frase motivacional"
	}

	hour, minute, err := parseClock(args[0])
	if err != nil {
		// Erro de validação vai literal para o usuário corrigir.
		return err.Error()
	}

	frequency := store.Frequency(strings.ToLower(args[1]))
	message := strings.Join(args[2:], " ")

	id, err := c.store.SaveSchedule(chatID, hour, minute, frequency, message)
	if err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			return ve.Reason
		}
		c.logger.Error("falha ao salvar agendamento", "chat_id", chatID, "error", err)
		return replyStoreFail
	}

	c.logger.Info("agendamento criado",
		"chat_id", chatID, "schedule_id", id,
		"hour", hour, "minute", minute, "frequency", string(frequency),
	)
	var when string
	switch frequency {
	case store.FrequencyOnce:
		when = fmt.Sprintf("Uma única vez às %02d:%02d", hour, minute)
	case store.FrequencyWeekly:
		when = fmt.Sprintf("Toda semana às %02d:%02d", hour, minute)
	default:
		when = fmt.Sprintf("Todo dia às %02d:%02d", hour, minute)
	}
	return fmt.Sprintf("Agendado! 📅 %s eu mando: %q\n"+
		"Para cancelar: /desagendar %s", when, message, id)
}

func (c *Commands) handleListSchedules(chatID string) string {
	entries, err := c.store.ChatSchedules(chatID)
	if err != nil {
		c.logger.Error("falha ao listar agendamentos", "chat_id", chatID, "error", err)
		return replyStoreFail
	}
	if len(entries) == 0 {
		return "Você não tem nenhum agendamento ainda. Crie um com /agendar!"
	}

	var b strings.Builder
	b.WriteString("Seus agendamentos 📅\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "• %02d:%02d (%s) — %s [%s]\n",
			e.Hour, e.Minute, frequencyLabel(e.Frequency), e.Message, e.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) handleUnschedule(chatID string, args []string) string {
	if len(args) != 1 {
		return "Uso: /desagendar ID\nVeja os IDs com /agendamentos"
	}
	if err := c.store.DeleteSchedule(args[0]); err != nil {
		c.logger.Error("falha ao remover agendamento", "chat_id", chatID, "error", err)
		return replyStoreFail
	}
	return "Agendamento removido! 🗑️"
}

func (c *Commands) handleSpontaneous(chatID string, args []string) string {
	if len(args) != 1 {
		return "Uso: /espontanea on|off"
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return fmt.Sprintf("valor inválido %q: use on ou off", args[0])
	}

	if err := c.store.SetSpontaneousEnabled(chatID, enabled); err != nil {
		c.logger.Error("falha ao salvar modo espontâneo", "chat_id", chatID, "error", err)
		return replyStoreFail
	}
	if enabled {
		return "Modo espontâneo ligado! De vez em quando eu apareço de surpresa 💖"
	}
	return "Modo espontâneo desligado. Só falo quando você me chamar!"
}

func (c *Commands) unknownReply() string {
	return "Não conheço esse comando 😅 Os que eu sei são: /start, /limpar, " +
		"/personalidade, /agendar, /agendamentos, /desagendar e /espontanea"
}

const replyStoreFail = "Tive um probleminha para salvar isso 😢 Tenta de novo daqui a pouco?"

// parseClock interpreta "HH:MM" validando os limites.
func parseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, &store.ValidationError{
			Reason: fmt.Sprintf("horário inválido %q: use o formato HH:MM", s),
		}
	}
	hour, err = strconv.Atoi(hh)
	if err != nil {
		return 0, 0, &store.ValidationError{
			Reason: fmt.Sprintf("horário inválido %q: use o formato HH:MM", s),
		}
	}
	minute, err = strconv.Atoi(mm)
	if err != nil {
		return 0, 0, &store.ValidationError{
			Reason: fmt.Sprintf("horário inválido %q: use o formato HH:MM", s),
		}
	}
	return hour, minute, nil
}

func frequencyLabel(f store.Frequency) string {
	switch f {
	case store.FrequencyDaily:
		return "dia"
	case store.FrequencyWeekly:
		return "semana"
	case store.FrequencyOnce:
		return "uma vez"
	default:
		return string(f)
	}
}
