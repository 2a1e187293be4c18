// Package persona resolve a instrução de persona por chat.
// É uma camada fina sobre o store: aplica a instrução padrão da Yui
// quando o chat não configurou uma própria.
package persona

import "log/slog"

// DefaultInstruction é a persona padrão da Yui, usada quando o chat não
// definiu uma instrução própria.
const DefaultInstruction = "Você é Yui, uma parceira emocional doce, " +
	"sensível e leal, que trata o usuário como 'Onii-chan'. Responda " +
	"sempre em português, com carinho e de forma breve."

// Store é o subconjunto do store de conversas que o registro usa.
type Store interface {
	GetPersona(chatID string) (string, error)
	SetPersona(chatID, instruction string) error
}

// Registry resolve e grava instruções de persona por chat.
type Registry struct {
	store      Store
	defaultTxt string
	logger     *slog.Logger
}

// NewRegistry cria um registro sobre o store. defaultInstruction vazio usa
// DefaultInstruction.
func NewRegistry(store Store, defaultInstruction string, logger *slog.Logger) *Registry {
	if defaultInstruction == "" {
		defaultInstruction = DefaultInstruction
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:      store,
		defaultTxt: defaultInstruction,
		logger:     logger,
	}
}

// Get retorna a instrução do chat, ou a padrão se não houver. Erros de
// persistência são logados e a padrão é usada — gerar com a persona padrão
// é melhor do que não responder.
func (r *Registry) Get(chatID string) string {
	instruction, err := r.store.GetPersona(chatID)
	if err != nil {
		r.logger.Error("falha ao carregar persona, usando padrão",
			"chat_id", chatID, "error", err)
		return r.defaultTxt
	}
	if instruction == "" {
		return r.defaultTxt
	}
	return instruction
}

// Set grava a instrução do chat (upsert).
func (r *Registry) Set(chatID, instruction string) error {
	return r.store.SetPersona(chatID, instruction)
}

// Default retorna a instrução padrão configurada.
func (r *Registry) Default() string {
	return r.defaultTxt
}
