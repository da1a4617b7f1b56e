// Package summarizer превращает задачи дня в короткий текст.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	// ответ модели пустой
	fallbackSummary = "Here’s your day!"
	systemPrompt    = "Be brief and actionable. Output plain text only."
	temperature     = 0.3
	// ограничение на тело ответа с ошибкой в логах
	maxErrorBody = 512
)

var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// compactTask - задача в том виде, в каком её видит модель
type compactTask struct {
	Title     string `json:"title"`
	Time      string `json:"time"`
	Kind      string `json:"kind"`
	Completed bool   `json:"completed"`
}

// OpenAI - клиент Chat Completions. Совместим с любым API
// в том же формате (Azure OpenAI, OpenRouter, Ollama).
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	loc     *time.Location
	client  *http.Client
	logger  *logrus.Logger
}

// NewOpenAI создаёт клиент. Пустые baseURL и model заменяются значениями по умолчанию,
// loc задаёт зону, в которой время задач показывается модели.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, loc *time.Location, logger *logrus.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if loc == nil {
		loc = time.Local
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		loc:     loc,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *OpenAI) Summarize(ctx context.Context, tasks []*models.Task) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	prompt, err := c.prompt(tasks)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return "", fmt.Errorf("openai error (%d): %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"component":         "summarizer",
		"model":             c.model,
		"tasks":             len(tasks),
		"prompt_tokens":     out.Usage.PromptTokens,
		"completion_tokens": out.Usage.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	}).Debug("summary generated")

	if len(out.Choices) == 0 {
		return fallbackSummary, nil
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return fallbackSummary, nil
	}
	return text, nil
}

func (c *OpenAI) prompt(tasks []*models.Task) (string, error) {
	compact := make([]compactTask, 0, len(tasks))
	for _, t := range tasks {
		compact = append(compact, compactTask{
			Title:     t.Title,
			Time:      formatClock(t.Start, c.loc) + " - " + formatClock(t.End, c.loc),
			Kind:      t.Kind,
			Completed: t.Completed,
		})
	}
	data, err := json.MarshalIndent(compact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return strings.Join([]string{
		"You are a concise daily planner assistant.",
		"Given today's tasks/quests, write a friendly one-paragraph summary (<=69 words) and a short checklist.",
		"Focus on incomplete tasks first.",
		"Tasks:",
		string(data),
	}, "\n"), nil
}

// formatClock - "3:04 PM"
func formatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("3:04 PM")
}
