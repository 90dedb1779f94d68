package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "allie-graph/pkg/errors"
	"allie-graph/pkg/logger"
)

// ============================================================================
// LLM Intent Classification
// ============================================================================

const intentSystemPrompt = `You classify natural language questions about a family knowledge graph.

Respond with a single JSON object and nothing else:
{
  "intent": "entity_search" | "relationship_query" | "path_query" | "insight_query" | "unknown",
  "entityType": "...",
  "entityName": "...",
  "entityName1": "...",
  "entityName2": "...",
  "relationshipType": "...",
  "mentionedType": "..."
}

Omit fields that do not apply. Entity types include: person, family, event,
task, document, provider, location, medication, milestone, interest, habit,
metric, insight, communication, preference.`

// LLMClassifier classifies query intent with a chat completion model,
// falling back to pattern matching when the model call or its output fails.
type LLMClassifier struct {
	client   *openai.Client
	model    string
	fallback *RegexClassifier
	logger   *zap.Logger
}

// NewLLMClassifier creates an intent classifier backed by an OpenAI-compatible
// endpoint such as LiteLLM.
func NewLLMClassifier(baseURL, apiKey, model string) *LLMClassifier {
	// LiteLLM accepts a dummy API key when none is configured
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &LLMClassifier{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		fallback: NewRegexClassifier(),
		logger:   logger.Get(),
	}
}

// Classify asks the model for the query intent. Model failures degrade to the
// pattern classifier instead of failing the query.
func (c *LLMClassifier) Classify(ctx context.Context, query string) (*QueryIntent, error) {
	intent, err := c.classifyWithModel(ctx, query)
	if err != nil {
		c.logger.Warn("LLM intent classification failed, using pattern fallback",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return c.fallback.Classify(ctx, query)
	}
	return intent, nil
}

func (c *LLMClassifier) classifyWithModel(ctx context.Context, query string) (*QueryIntent, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: intentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0,
	}

	var resp openai.ChatCompletionResponse
	var err error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			c.logger.Warn("Retrying intent classification request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			time.Sleep(backoff)
		}

		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		c.logger.Error("Intent classification request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", c.model),
		)
	}
	if err != nil {
		return nil, apperrors.NewIntentClassificationFailed(query, fmt.Errorf("after %d attempts: %w", maxRetries, err))
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewIntentClassificationFailed(query, fmt.Errorf("no choices in model response"))
	}

	intent, err := parseIntentJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, apperrors.NewIntentClassificationFailed(query, err)
	}
	intent.OriginalQuery = query
	return intent, nil
}

// parseIntentJSON extracts the intent object from model output, tolerating
// surrounding prose or markdown fences.
func parseIntentJSON(content string) (*QueryIntent, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var intent QueryIntent
	if err := json.Unmarshal([]byte(content[start:end+1]), &intent); err != nil {
		return nil, fmt.Errorf("failed to parse intent JSON: %w", err)
	}

	switch intent.Intent {
	case IntentEntitySearch, IntentRelationshipQuery, IntentPathQuery, IntentInsightQuery:
	default:
		intent.Intent = IntentUnknown
	}
	return &intent, nil
}
