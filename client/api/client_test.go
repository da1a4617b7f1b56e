package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized","message":"Authentication required. Please sign in."}`))
			return
		}
		switch r.Method + " " + r.URL.Path {
		case "GET /quests":
			w.Write([]byte(`[{"_id":"507f1f77bcf86cd799439011","title":"Run","start":"2025-03-04T09:00:00Z","end":"2025-03-04T10:00:00Z","kind":"task","completed":false}]`))
		case "POST /quests":
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"title":"Read"`) {
				t.Errorf("create body = %s", body)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"message":"Task added","task":{"_id":"507f1f77bcf86cd799439012","title":"Read","start":"2025-03-04T09:00:00Z","end":"2025-03-04T10:00:00Z","kind":"task"}}`))
		case "GET /quests/wakie-wakie":
			if r.URL.Query().Get("date") != "2025-03-04" {
				t.Errorf("date = %q", r.URL.Query().Get("date"))
			}
			w.Write([]byte(`{"summary":"Go run."}`))
		case "DELETE /quests/507f1f77bcf86cd799439013":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Not authorized to delete this task"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Failed to update task","details":"boom"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL+"/", "tok", 5*time.Second)

	list, err := c.ListQuests(ctx)
	if err != nil || len(list) != 1 || list[0].Title != "Run" {
		t.Fatalf("ListQuests = %+v, %v", list, err)
	}

	created, err := c.CreateQuest(ctx, Payload{Title: "Read"})
	if err != nil || created.Message != "Task added" || created.Task.ID != "507f1f77bcf86cd799439012" {
		t.Fatalf("CreateQuest = %+v, %v", created, err)
	}

	summary, err := c.Summary(ctx, "2025-03-04")
	if err != nil || summary != "Go run." {
		t.Fatalf("Summary = %q, %v", summary, err)
	}

	err = c.DeleteQuest(ctx, "507f1f77bcf86cd799439013")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("delete: want ErrForbidden, got %v", err)
	}

	_, err = c.UpdateQuest(ctx, "507f1f77bcf86cd799439011", Payload{Title: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 || apiErr.Message != "Failed to update task" || apiErr.Details != "boom" {
		t.Errorf("update err = %v", err)
	}

	anon := NewClient(srv.URL, "", time.Second)
	_, err = anon.ListQuests(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anon: want ErrUnauthorized, got %v", err)
	}
	if !errors.As(err, &apiErr) || apiErr.Message != "Authentication required. Please sign in." {
		t.Errorf("anon message = %v", err)
	}
}
