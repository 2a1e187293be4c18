package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAITimeout        = 120 * time.Second
)

// OpenAIConfig configura o provedor primário (API compatível com
// chat completions da OpenAI).
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAI fala com a API de chat completions via HTTP.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAI cria o cliente. BaseURL vazia usa a API oficial.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: openAITimeout},
		logger:     logger.With("component", "provider", "provider", "openai"),
	}
}

func (o *OpenAI) Name() string { return "openai" }

// Tipos de wire da API de chat completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate envia persona + histórico e retorna o texto do assistente.
func (o *OpenAI) Generate(ctx context.Context, personaInstruction string, history []Message) (string, error) {
	if o.apiKey == "" {
		return "", &Error{Provider: o.Name(), Kind: KindAuth, Message: "API key não configurada"}
	}

	messages := make([]chatMessage, 0, len(history)+1)
	if personaInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: personaInstruction})
	}
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	bodyBytes, err := json.Marshal(chatRequest{Model: o.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := o.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	o.logger.Debug("sending chat completion",
		"model", o.model,
		"messages", len(messages),
		"endpoint", endpoint,
	)

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindUnavailable, Message: "reading response: " + err.Error()}
	}
	duration := time.Since(start)
	bodyStr := string(respBody)

	if resp.StatusCode != http.StatusOK {
		o.logger.Error("API error",
			"model", o.model,
			"status", resp.StatusCode,
			"body", truncate(bodyStr, 500),
		)
		return "", &Error{
			Provider: o.Name(),
			Kind:     classifyStatus(resp.StatusCode, bodyStr),
			Status:   resp.StatusCode,
			Message:  truncate(bodyStr, 200),
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindUnavailable, Message: "parsing response: " + err.Error()}
	}
	if chatResp.Error != nil {
		return "", &Error{
			Provider: o.Name(),
			Kind:     classifyStatus(resp.StatusCode, chatResp.Error.Message),
			Status:   resp.StatusCode,
			Message:  chatResp.Error.Message,
		}
	}
	if len(chatResp.Choices) == 0 {
		return "", &Error{Provider: o.Name(), Kind: KindUnavailable, Message: "no response from model"}
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	o.logger.Info("chat completion done",
		"model", o.model,
		"duration_ms", duration.Milliseconds(),
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"finish_reason", chatResp.Choices[0].FinishReason,
	)

	return content, nil
}

var _ Client = (*OpenAI)(nil)
