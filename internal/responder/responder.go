package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"realty_chat/internal/config"
	"realty_chat/internal/domain"
	"realty_chat/pkg/logger"
)

// Responder - ассистент агентства поверх langchaingo. Возвращает сырой текст
// модели: свободный ответ, JSON с поиском или текст с маркером передачи оператору.
type Responder struct {
	llm           llms.Model
	modelName     string
	assistantName string
	handoffToken  string
	temperature   float64
	maxTokens     int
	log           logger.Logger
}

func New(model llms.Model, llmCfg config.LLMConfig, chatCfg config.ChatConfig, log logger.Logger) *Responder {
	return &Responder{
		llm:           model,
		modelName:     llmCfg.Model,
		assistantName: chatCfg.AssistantName,
		handoffToken:  chatCfg.HandoffToken,
		temperature:   llmCfg.Temperature,
		maxTokens:     llmCfg.MaxTokens,
		log:           log,
	}
}

func (r *Responder) Respond(ctx context.Context, history []domain.ConversationTurn, text, locale string) (string, error) {
	messages := buildMessages(systemPrompt(r.assistantName, r.handoffToken, locale), history, text)

	opts := []llms.CallOption{llms.WithTemperature(r.temperature)}
	if r.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(r.maxTokens))
	}

	start := time.Now()
	response, err := r.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		r.log.Warn("LLM request failed", "error", err, "model", r.modelName, "duration", time.Since(start))
		return "", fmt.Errorf("generate reply: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	r.log.Debug("LLM reply received", "model", r.modelName, "duration", time.Since(start), "turns", len(history))

	return strings.TrimSpace(response.Choices[0].Content), nil
}

// Model возвращает имя модели
func (r *Responder) Model() string {
	return r.modelName
}

func buildMessages(system string, history []domain.ConversationTurn, text string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))

	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := llms.ChatMessageTypeHuman
		if turn.Role == domain.TurnRoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Text))
	}

	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, text))
}

func systemPrompt(assistantName, handoffToken, locale string) string {
	language := "Turkish"
	if locale == domain.LocaleEN {
		language = "English"
	}

	return fmt.Sprintf(`You are %s, the virtual assistant of a real-estate agency.
Help visitors with questions about buying, selling and renting property, neighbourhoods and the agency's services.
Answer in %s. Be short, friendly and concrete.

When the visitor asks for a property (e.g. by location, size or number of rooms), reply with ONLY this JSON and nothing else:
{"action":"search_properties","criteria":{"query":"<keywords>","minArea":0,"maxArea":0,"rooms":null}}
- "query": free-text keywords such as location, property type or features
- "minArea"/"maxArea": area in square meters, 0 when not specified
- "rooms": room layout such as "3+1", or null when not specified

When the visitor asks to talk to a human, a live agent or customer support, or when you cannot help,
include the exact token %s in your reply.

Never invent listings, prices or addresses.`, assistantName, language, handoffToken)
}
