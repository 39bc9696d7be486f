package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	appcfg "github.com/distill-app/core/internal/config"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const structuredMaxTokens = 2048

// SelectProvider picks the enabled provider for a pipeline role, honoring an
// explicit assignment (with optional model override) before falling back to
// the first enabled provider.
func SelectProvider(cfg appcfg.AIConfig, assignment *appcfg.AIModelAssignment) *appcfg.AIProvider {
	var providerID, overrideModel string
	if assignment != nil {
		providerID = strings.TrimSpace(assignment.ProviderID)
		overrideModel = strings.TrimSpace(assignment.Model)
	}

	pick := func(provider appcfg.AIProvider) *appcfg.AIProvider {
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}

	if providerID != "" {
		for _, provider := range cfg.Providers {
			if provider.Enabled && strings.TrimSpace(provider.ID) == providerID {
				return pick(provider)
			}
		}
	}
	for _, provider := range cfg.Providers {
		if provider.Enabled {
			return pick(provider)
		}
	}
	return nil
}

func isOpenAICompatibleProviderType(raw string) bool {
	switch normalizeProviderType(raw) {
	case "openai", "openai-compatible", "openaicompatible", "openrouter":
		return true
	}
	return false
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// callStructured asks the provider for a create_summary tool call and
// returns the raw JSON arguments.
func callStructured(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string, timeout time.Duration) (string, error) {
	if provider == nil {
		return "", errors.New("no enabled AI provider")
	}
	if strings.TrimSpace(provider.APIKey) == "" {
		return "", errors.New("AI provider api key is empty")
	}

	if isOpenAICompatibleProviderType(provider.Type) {
		return callToolChatCompletions(ctx, provider, systemPrompt, prompt, timeout)
	}
	return callStructuredViaPrompt(ctx, provider, systemPrompt, prompt)
}

// callToolChatCompletions forces a single tool call through an
// OpenAI-compatible /v1/chat/completions endpoint and extracts its
// arguments.
func callToolChatCompletions(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string, timeout time.Duration) (string, error) {
	endpoint := normalizeOpenAICompatibleEndpoint(provider.Endpoint)
	model := strings.TrimSpace(provider.DefaultModel)
	if model == "" {
		model = "gpt-4o-mini"
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	body, _ := json.Marshal(map[string]interface{}{
		"model":      model,
		"messages":   messages,
		"max_tokens": structuredMaxTokens,
		"tools": []map[string]interface{}{
			{
				"type": "function",
				"function": map[string]interface{}{
					"name":        createSummaryToolName,
					"description": "Create a structured summary of the analyzed content",
					"parameters":  createSummarySchema(),
				},
			},
		},
		"tool_choice": map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": createSummaryToolName},
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(provider.APIKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("chat completions request failed with status %d: %s",
			resp.StatusCode, truncateText(strings.TrimSpace(string(respBody)), 300))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("chat completions error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("empty response from AI")
	}

	msg := result.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == createSummaryToolName && strings.TrimSpace(call.Function.Arguments) != "" {
			return call.Function.Arguments, nil
		}
	}
	// Some compatible backends ignore tool_choice and answer inline.
	if strings.TrimSpace(msg.Content) != "" {
		return msg.Content, nil
	}
	return "", errors.New("no tool call in AI response")
}

// callStructuredViaPrompt serves providers without an OpenAI-compatible
// tools endpoint (Anthropic): the schema is enforced by prompt and the
// response parsed as raw JSON.
func callStructuredViaPrompt(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string) (string, error) {
	schemaJSON, _ := json.Marshal(createSummarySchema())
	systemPrompt += fmt.Sprintf(`

IMPORTANT: Output MUST be a single valid JSON object matching this schema.
ABSOLUTE: DO NOT wrap the JSON in markdown/code fences.

## Output JSON Schema
%s`, schemaJSON)

	model, _, err := buildLanguageModel(provider)
	if err != nil {
		return "", err
	}
	resp, err := jetai.GenerateText(
		ctx,
		buildPromptMessages(systemPrompt, prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(structuredMaxTokens),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromResponse(resp)
}

// callStream streams plain text through the provider, invoking onToken per
// chunk, and returns the full text.
func callStream(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string, onToken func(string)) (string, error) {
	if provider == nil {
		return "", errors.New("no enabled AI provider")
	}

	model, streamEnabled, err := buildLanguageModel(provider)
	if err != nil {
		return "", err
	}

	if !streamEnabled {
		resp, err := jetai.GenerateText(
			ctx,
			buildPromptMessages(systemPrompt, prompt),
			jetai.WithModel(model),
			jetai.WithMaxOutputTokens(structuredMaxTokens),
		)
		if err != nil {
			return "", err
		}
		result, err := extractTextFromResponse(resp)
		if err != nil {
			return "", err
		}
		if onToken != nil {
			onToken(result)
		}
		return result, nil
	}

	streamResp, err := jetai.StreamText(
		ctx,
		buildPromptMessages(systemPrompt, prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(structuredMaxTokens),
	)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for event := range streamResp.Stream {
		switch evt := event.(type) {
		case *jetapi.TextDeltaEvent:
			if evt.TextDelta == "" {
				continue
			}
			full.WriteString(evt.TextDelta)
			if onToken != nil {
				onToken(evt.TextDelta)
			}
		case *jetapi.ErrorEvent:
			if evt.Err == nil {
				return "", errors.New("AI stream returned an unknown error")
			}
			return "", fmt.Errorf("%v", evt.Err)
		}
	}
	result := full.String()
	if strings.TrimSpace(result) == "" {
		return "", errors.New("empty response from AI")
	}
	return result, nil
}

func buildPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func buildLanguageModel(provider *appcfg.AIProvider) (jetapi.LanguageModel, bool, error) {
	if provider == nil {
		return nil, false, errors.New("no enabled AI provider")
	}
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, false, errors.New("AI provider api key is empty")
	}

	modelID := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	if normalizeProviderType(provider.Type) == "anthropic" {
		if modelID == "" {
			modelID = "claude-haiku-4-5-20251001"
		}
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), false, nil
	}

	if modelID == "" {
		modelID = "gpt-4o-mini"
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), true, nil
}

// unmarshalAIJSON tolerates code fences and leading prose around the JSON
// object that some models emit despite instructions. A type mismatch in
// otherwise well-formed JSON is surfaced as the *json.UnmarshalTypeError
// so callers can report the offending field instead of a generic parse
// failure.
func unmarshalAIJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	err := json.Unmarshal([]byte(cleaned), out)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return err
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		err = json.Unmarshal([]byte(cleaned[start:end+1]), out)
		if err == nil {
			return nil
		}
		if errors.As(err, &typeErr) {
			return err
		}
	}
	return errors.New("invalid JSON response from AI")
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		cleaned := strings.TrimRight(base, "/")
		return strings.TrimSuffix(cleaned, "/v1")
	}

	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/v1")
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
