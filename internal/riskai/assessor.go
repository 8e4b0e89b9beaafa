package riskai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/gigmarket/pkg/httpclient"
	"github.com/richxcame/gigmarket/pkg/resilience"
)

// ErrUpstreamSignal wraps every failure to obtain a usable model answer
var ErrUpstreamSignal = errors.New("ai risk signal unavailable")

const (
	systemPrompt = "You are a fraud detection expert. Always respond with valid JSON only, no markdown or extra text."
	temperature  = 0.3
	maxTokens    = 800
)

// Assessor turns a prompt into a risk verdict
type Assessor interface {
	AssessRisk(ctx context.Context, prompt string) (*RiskResult, error)
}

// Poster is the transport used by ChatCompletionsAssessor
type Poster interface {
	Post(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ChatCompletionsAssessor talks to an OpenAI compatible /chat/completions API
type ChatCompletionsAssessor struct {
	client  Poster
	breaker *resilience.CircuitBreaker
	apiKey  string
	model   string
	timeout time.Duration
}

// NewChatCompletionsAssessor creates an assessor for baseURL. Every call is
// bounded by timeout and guarded by a circuit breaker.
func NewChatCompletionsAssessor(baseURL, apiKey, model string, timeout time.Duration) *ChatCompletionsAssessor {
	breaker := resilience.NewCircuitBreaker(
		resilience.BuildSettings("ai-risk", 60, 30, 5, 1),
		resilience.GracefulDegradation("ai-risk"),
	)
	return &ChatCompletionsAssessor{
		client:  httpclient.NewClient(strings.TrimRight(baseURL, "/"), timeout),
		breaker: breaker,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// Model returns the model name sent upstream
func (a *ChatCompletionsAssessor) Model() string {
	return a.model
}

// AssessRisk sends prompt to the model and parses its JSON answer
func (a *ChatCompletionsAssessor) AssessRisk(ctx context.Context, prompt string) (*RiskResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}

	out, err := a.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return a.client.Post(ctx, "/chat/completions", req, headers)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamSignal, err)
	}

	var resp chatResponse
	if err := json.Unmarshal(out.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", ErrUpstreamSignal, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstreamSignal)
	}
	return ParseResult(resp.Choices[0].Message.Content)
}

// ParseResult extracts the JSON object from a model answer. Text before the
// first '{' and after the last '}' is ignored.
func ParseResult(content string) (*RiskResult, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrUpstreamSignal)
	}

	var result RiskResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("%w: invalid response format: %v", ErrUpstreamSignal, err)
	}
	if result.RiskScore < 0 || result.RiskScore > 100 {
		return nil, fmt.Errorf("%w: risk score %d out of range", ErrUpstreamSignal, result.RiskScore)
	}
	result.normalize()
	result.Raw = content
	return &result, nil
}

// StubAssessor answers with a fixed result. It is used when no model is
// configured and in tests.
type StubAssessor struct {
	Result *RiskResult
	Err    error

	mu      sync.Mutex
	prompts []string
}

// Prompts returns a copy of every prompt received so far.
func (s *StubAssessor) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// AssessRisk returns the configured result or error
func (s *StubAssessor) AssessRisk(ctx context.Context, prompt string) (*RiskResult, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result == nil {
		return &RiskResult{
			RiskScore:          10,
			Reasons:            []string{},
			Recommendation:     RecommendApprove,
			Flags:              []Flag{},
			SuspiciousPatterns: []Pattern{},
		}, nil
	}
	copied := *s.Result
	return &copied, nil
}
