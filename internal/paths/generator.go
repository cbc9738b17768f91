package paths

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// Generator turns a skill into a structured learning path.
type Generator interface {
	Generate(ctx context.Context, skill string) (*models.GeneratedPath, error)
}

const (
	systemPrompt = "You are an expert curriculum designer. Create a detailed learning path with practical steps and resources. " +
		`Respond with a JSON object: {"title": string, "description": string, "steps": [{"title": string, "description": string, "resources": [string]}]}.`
	userPromptFormat = "Create a learning path for: %s. Include a title, description, and detailed steps with resources."
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint in
// JSON mode. It does not retry or cache.
type OpenAIGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewOpenAIGenerator(baseURL, apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate calls POST /chat/completions and parses the message content as
// a learning path. Content that does not pass the saved-path schema is a
// failure, never repaired. Every failure wraps shared.ErrGeneration.
func (g *OpenAIGenerator) Generate(ctx context.Context, skill string) (*models.GeneratedPath, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptFormat, skill)},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", shared.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: llm /chat/completions: %v", shared.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp, "llm", "/chat/completions"); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGeneration, err)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: llm /chat/completions: decode: %v", shared.ErrGeneration, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: llm returned no choices", shared.ErrGeneration)
	}

	path, err := parseGeneratedPath([]byte(result.Choices[0].Message.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: llm content is not a learning path: %v", shared.ErrGeneration, err)
	}
	return path, nil
}

// checkResp returns an error if the status is not 2xx. The error carries
// the upstream message, or a truncated body, for the logs.
func checkResp(resp *http.Response, service, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s %s returned %d: %s", service, path, resp.StatusCode, upstreamMessage(body))
}

func upstreamMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Error.Message != "" {
			return errResp.Error.Message
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
