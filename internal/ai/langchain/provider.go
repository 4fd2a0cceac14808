package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/archflow/internal/ai"
)

// LangchainProvider implements the ai.Provider interface using langchain
// abstractions. One instance is shared by every pipeline stage; the backend
// (googleai, openai, anthropic) is fixed at startup.
type LangchainProvider struct {
	llm         llms.Model
	backend     string
	apiKey      string
	modelName   string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	limiter     *rate.Limiter
}

// Config for the langchain provider
type Config struct {
	Backend     string  `json:"backend"`
	APIKey      string  `json:"api_key"`
	ModelName   string  `json:"model_name"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TimeoutSecs int     `json:"timeout_seconds"`
}

// New creates a new langchain-based LLM provider
func New(config Config) *LangchainProvider {
	return &LangchainProvider{
		backend:     config.Backend,
		apiKey:      config.APIKey,
		modelName:   config.ModelName,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		timeout:     time.Duration(config.TimeoutSecs) * time.Second,
		// External LLM APIs are rate-limited; keep a conservative client-side cap
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

func (p *LangchainProvider) Name() string {
	return "langchain"
}

func (p *LangchainProvider) Configure(config map[string]interface{}) error {
	if backend, ok := config["backend"].(string); ok {
		p.backend = backend
	}
	if apiKey, ok := config["api_key"].(string); ok {
		p.apiKey = apiKey
	}
	if modelName, ok := config["model_name"].(string); ok {
		p.modelName = modelName
	}
	if temperature, ok := config["temperature"].(float64); ok {
		p.temperature = temperature
	}
	if maxTokens, ok := config["max_tokens"].(float64); ok { // JSON numbers are float64
		p.maxTokens = int(maxTokens)
	}
	if timeoutSecs, ok := config["timeout_seconds"].(float64); ok {
		p.timeout = time.Duration(timeoutSecs) * time.Second
	}

	return p.initializeLLM()
}

func (p *LangchainProvider) initializeLLM() error {
	if p.apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	maxTokens := p.maxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	var llm llms.Model
	var err error

	switch p.backend {
	case "googleai", "":
		llm, err = googleai.New(context.Background(),
			googleai.WithAPIKey(p.apiKey),
			googleai.WithDefaultModel(p.getModelName()),
			googleai.WithDefaultMaxTokens(maxTokens),
		)
	case "openai":
		llm, err = openai.New(
			openai.WithToken(p.apiKey),
			openai.WithModel(p.getModelName()),
		)
	case "anthropic":
		llm, err = anthropic.New(
			anthropic.WithToken(p.apiKey),
			anthropic.WithModel(p.getModelName()),
		)
	default:
		return fmt.Errorf("unsupported LLM backend: %s", p.backend)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}

	p.llm = llm
	return nil
}

func (p *LangchainProvider) getModelName() string {
	if p.modelName != "" {
		return p.modelName
	}
	return "gemini-2.5-flash" // Default model
}

// Invoke sends the prompt messages to the configured backend and returns the
// raw response text. Every invocation carries the configured hard timeout.
func (p *LangchainProvider) Invoke(ctx context.Context, messages []ai.PromptMessage) (string, error) {
	if p.llm == nil {
		if err := p.initializeLLM(); err != nil {
			return "", fmt.Errorf("failed to initialize LLM: %w", err)
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	timeout := p.timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		msgType := llms.ChatMessageTypeHuman
		if msg.Role == ai.RoleSystem {
			msgType = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.TextParts(msgType, msg.Text))
	}

	resp, err := p.llm.GenerateContent(ctx, content,
		llms.WithTemperature(p.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	return resp.Choices[0].Content, nil
}
