// Package orchestrator coordena a conversa com os provedores de LLM.
// Mantém, por chat, a máquina de estados de confirmação de fallback usada
// quando o provedor primário está sobrecarregado.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/yuibot/yui/pkg/yui/provider"
	"github.com/yuibot/yui/pkg/yui/store"
)

// Respostas de serviço da Yui. Não são persistidas no histórico.
const (
	replyConfirmFallback = "O meu provedor principal está sobrecarregado 😢 " +
		"Quer que eu tente com o provedor reserva? Responde \"sim\" que eu tento 💖"
	replyRateLimited = "Estou sobrecarregada agora 😢 Me dá uns minutinhos e tenta de novo?"
	replyGenericFail = "Tive um probleminha 😢 Tenta de novo daqui a pouco?"
	replyPaused      = "Tudo bem, vamos deixar pra depois 💖 Me chama quando quiser!"

	// affirmativeToken confirma o uso do fallback (comparação por
	// igualdade, sem acento, minúscula, após trim).
	affirmativeToken = "sim"
)

// Store é o subconjunto do store de conversas usado pelo orquestrador.
type Store interface {
	AppendMessage(chatID string, role store.Role, content string) error
	LoadHistory(chatID string) ([]store.Message, error)
}

// Personas resolve a instrução de persona de um chat.
type Personas interface {
	Get(chatID string) string
}

// Orchestrator processa mensagens livres de um chat: monta persona +
// histórico, chama o primário e, sob rate limit, negocia o fallback com o
// usuário antes de usá-lo.
type Orchestrator struct {
	store    Store
	personas Personas
	primary  provider.Client
	fallback provider.Client // nil quando não configurado
	logger   *slog.Logger

	mu sync.Mutex
	// pending guarda, por chat, a mensagem do usuário que aguarda
	// confirmação de fallback. Presença no mapa == estado
	// AwaitingFallbackConfirmation.
	pending map[string]string
}

// New cria o orquestrador. fallback pode ser nil.
func New(st Store, personas Personas, primary, fallback provider.Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    st,
		personas: personas,
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "orchestrator"),
		pending:  make(map[string]string),
	}
}

// HandleMessage processa uma mensagem livre e retorna o texto a enviar ao
// usuário. Nunca retorna erro: falhas de provedor e de persistência viram
// respostas de desculpa e entradas de log.
func (o *Orchestrator) HandleMessage(ctx context.Context, chatID, text string) string {
	o.mu.Lock()
	pendingMsg, awaiting := o.pending[chatID]
	if awaiting {
		delete(o.pending, chatID)
	}
	o.mu.Unlock()

	if awaiting {
		return o.resolvePending(ctx, chatID, text, pendingMsg)
	}
	return o.generate(ctx, chatID, text)
}

// AwaitingConfirmation reporta se o chat tem uma confirmação de fallback
// pendente.
func (o *Orchestrator) AwaitingConfirmation(chatID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.pending[chatID]
	return ok
}

// CancelPending descarta silenciosamente a confirmação pendente do chat,
// se houver. Usado quando um comando chega no meio da negociação.
func (o *Orchestrator) CancelPending(chatID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.pending[chatID]; !ok {
		return false
	}
	delete(o.pending, chatID)
	return true
}

// generate é o caminho Idle: persiste a mensagem, chama o primário e trata
// a classificação do erro.
func (o *Orchestrator) generate(ctx context.Context, chatID, text string) string {
	if err := o.store.AppendMessage(chatID, store.RoleUser, text); err != nil {
		o.logger.Error("falha ao persistir mensagem do usuário", "chat_id", chatID, "error", err)
		return replyGenericFail
	}

	history, err := o.store.LoadHistory(chatID)
	if err != nil {
		o.logger.Error("falha ao carregar histórico", "chat_id", chatID, "error", err)
		return replyGenericFail
	}

	reply, err := o.callProvider(ctx, o.primary, chatID, history)
	if err == nil {
		o.persistReply(chatID, reply)
		return reply
	}

	switch {
	case provider.IsRateLimited(err) && o.fallback != nil:
		o.mu.Lock()
		o.pending[chatID] = text
		o.mu.Unlock()
		o.logger.Warn("primário sobrecarregado, aguardando confirmação de fallback",
			"chat_id", chatID, "error", err)
		return replyConfirmFallback

	case provider.IsRateLimited(err):
		o.logger.Warn("primário sobrecarregado e sem fallback configurado",
			"chat_id", chatID, "error", err)
		return replyRateLimited

	case provider.IsAuth(err):
		o.logger.Error("credencial do provedor rejeitada", "chat_id", chatID, "error", err)
		return replyGenericFail

	default:
		o.logger.Error("falha do provedor primário", "chat_id", chatID, "error", err)
		return replyGenericFail
	}
}

// resolvePending trata a resposta do usuário à pergunta de fallback. O
// texto de resolução ("sim" ou recusa) não entra no histórico.
func (o *Orchestrator) resolvePending(ctx context.Context, chatID, text, pendingMsg string) string {
	if !isAffirmative(text) {
		o.logger.Info("fallback recusado pelo usuário",
			"chat_id", chatID, "pending_chars", len(pendingMsg))
		return replyPaused
	}

	// A mensagem pendente já está no histórico desde a falha original.
	history, err := o.store.LoadHistory(chatID)
	if err != nil {
		o.logger.Error("falha ao carregar histórico para fallback", "chat_id", chatID, "error", err)
		return replyGenericFail
	}

	reply, err := o.callProvider(ctx, o.fallback, chatID, history)
	if err != nil {
		if provider.IsRateLimited(err) {
			o.logger.Warn("fallback também sobrecarregado", "chat_id", chatID, "error", err)
			return replyRateLimited
		}
		o.logger.Error("falha do provedor de fallback", "chat_id", chatID, "error", err)
		return replyGenericFail
	}

	o.persistReply(chatID, reply)
	return reply
}

// callProvider monta persona + histórico e chama o provedor.
func (o *Orchestrator) callProvider(ctx context.Context, client provider.Client, chatID string, history []store.Message) (string, error) {
	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return client.Generate(ctx, o.personas.Get(chatID), msgs)
}

// persistReply grava a resposta do assistente. Falha de persistência aqui
// não esconde a resposta do usuário, só é logada.
func (o *Orchestrator) persistReply(chatID, reply string) {
	if err := o.store.AppendMessage(chatID, store.RoleAssistant, reply); err != nil {
		o.logger.Error("falha ao persistir resposta do assistente", "chat_id", chatID, "error", err)
	}
}

func isAffirmative(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), affirmativeToken)
}
