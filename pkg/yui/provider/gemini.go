package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configura o provedor de fallback (Google Gemini).
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini usa o SDK oficial do Google GenAI como provedor de fallback.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini cria o cliente do Gemini.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Provider: "gemini", Kind: KindAuth, Message: "API key não configurada"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		logger: logger.With("component", "provider", "provider", "gemini"),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Generate converte o histórico para o formato do Gemini e gera a resposta.
// O papel "assistant" vira "model"; a persona vai como system instruction.
func (g *Gemini) Generate(ctx context.Context, personaInstruction string, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	var cfg *genai.GenerateContentConfig
	if personaInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(personaInstruction, genai.RoleUser),
		}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", g.wrapError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &Error{Provider: g.Name(), Kind: KindUnavailable, Message: "empty response from model"}
	}

	g.logger.Info("generation done",
		"model", g.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// wrapError classifica erros da API do Gemini.
func (g *Gemini) wrapError(err error) error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return &Error{
			Provider: g.Name(),
			Kind:     classifyStatus(ae.Code, ae.Message),
			Status:   ae.Code,
			Message:  truncate(ae.Message, 200),
		}
	}
	return &Error{Provider: g.Name(), Kind: KindUnavailable, Message: err.Error()}
}

var _ Client = (*Gemini)(nil)
