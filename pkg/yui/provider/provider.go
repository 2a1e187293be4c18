// Package provider define a interface com os provedores de LLM e a
// classificação de erros usada na decisão de fallback.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message é um turno de conversa enviado ao provedor.
type Message struct {
	Role    string // "system", "user" ou "assistant"
	Content string
}

// Client gera respostas a partir do histórico de um chat.
type Client interface {
	// Name identifica o provedor em logs e erros ("openai", "gemini").
	Name() string

	// Generate produz a resposta do assistente dado a instrução de
	// persona e o histórico em ordem cronológica.
	Generate(ctx context.Context, personaInstruction string, history []Message) (string, error)
}

// ErrorKind classifica falhas de provedor para decidir o fallback.
type ErrorKind int

const (
	// KindUnavailable cobre erros de rede, 5xx e respostas malformadas.
	KindUnavailable ErrorKind = iota
	// KindRateLimited indica 429 ou mensagem de quota/rate limit.
	KindRateLimited
	// KindAuth indica credencial inválida (401/403).
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth"
	default:
		return "unavailable"
	}
}

// Error é uma falha classificada de um provedor.
type Error struct {
	Provider string
	Kind     ErrorKind
	Status   int // status HTTP, 0 quando não aplicável
	Message  string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// IsRateLimited reporta se err é uma falha de rate limit de provedor.
func IsRateLimited(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}

// IsAuth reporta se err é uma falha de autenticação de provedor.
func IsAuth(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindAuth
}

// classifyStatus mapeia status HTTP e corpo de erro para um ErrorKind.
func classifyStatus(status int, body string) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status == 401 || status == 403:
		return KindAuth
	}
	lower := strings.ToLower(body)
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota") {
		return KindRateLimited
	}
	return KindUnavailable
}

// truncate limita strings de erro vindas da API para os logs.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
