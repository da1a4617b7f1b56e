package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
)

func sampleTasks() []*models.Task {
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	return []*models.Task{
		{Title: "Gym", Kind: "health", Start: day.Add(7 * time.Hour), End: day.Add(8 * time.Hour), Completed: true},
		{Title: "Write report", Kind: "work", Start: day.Add(15 * time.Hour), End: day.Add(16*time.Hour + 30*time.Minute)},
	}
}

func TestOpenAISummarize(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  Report at 3 PM.\n"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL, "", 5*time.Second, time.UTC, logger.Discard())
	text, err := c.Summarize(context.Background(), sampleTasks())
	if err != nil {
		t.Fatal(err)
	}
	if text != "Report at 3 PM." {
		t.Errorf("text = %q", text)
	}

	if got.Model != "gpt-4o-mini" || got.Temperature != 0.3 {
		t.Errorf("model/temperature = %s/%v", got.Model, got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	prompt := got.Messages[1].Content
	for _, want := range []string{"Focus on incomplete tasks first.", `"time": "3:00 PM - 4:30 PM"`, `"title": "Gym"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestOpenAIEmptyChoiceFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL, "", time.Second, time.UTC, logger.Discard())
	text, err := c.Summarize(context.Background(), sampleTasks())
	if err != nil {
		t.Fatal(err)
	}
	if text != "Here’s your day!" {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL, "", time.Second, time.UTC, logger.Discard())
	_, err := c.Summarize(context.Background(), sampleTasks())
	if err == nil || !strings.Contains(err.Error(), "Rate limit reached") {
		t.Errorf("err = %v", err)
	}

	noKey := NewOpenAI("", srv.URL, "", time.Second, time.UTC, logger.Discard())
	if _, err := noKey.Summarize(context.Background(), sampleTasks()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("want ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL, "", 50*time.Millisecond, time.UTC, logger.Discard())
	if _, err := c.Summarize(context.Background(), sampleTasks()); err == nil {
		t.Error("expected timeout error")
	}
}

func TestLocalSummarize(t *testing.T) {
	text, err := NewLocal(time.UTC).Summarize(context.Background(), sampleTasks())
	if err != nil {
		t.Fatal(err)
	}
	want := "You have 1 quest left today and 1 already done.\n[ ] 3:00 PM - Write report\n[x] 7:00 AM - Gym"
	if text != want {
		t.Errorf("text =\n%s\nwant\n%s", text, want)
	}

	tasks := sampleTasks()
	tasks[1].Completed = true
	text, _ = NewLocal(time.UTC).Summarize(context.Background(), tasks)
	if !strings.HasPrefix(text, "All 2 quests done for today.") {
		t.Errorf("text = %q", text)
	}
}
