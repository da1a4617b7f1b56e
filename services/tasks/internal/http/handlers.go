package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/identity"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/middleware"
)

type TaskHandler struct {
	taskService    *service.TaskService
	summaryService *service.SummaryService
	users          *service.UserRegistry
	logger         *logrus.Logger
	now            func() time.Time
}

func NewTaskHandler(ts *service.TaskService, ss *service.SummaryService, users *service.UserRegistry, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:    ts,
		summaryService: ss,
		users:          users,
		logger:         logger,
		now:            time.Now,
	}
}

// Register вешает маршруты на mux. protect оборачивает маршруты, требующие входа.
func (h *TaskHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}
	handle("GET /quests", h.ListTasks)
	handle("POST /quests", h.CreateTask)
	handle("GET /quests/wakie-wakie", h.DaySummary)
	handle("GET /quests/{id}", h.GetTask)
	handle("PATCH /quests/{id}", h.UpdateTask)
	handle("PATCH /quests/{id}/complete", h.ToggleComplete)
	handle("DELETE /quests/{id}", h.DeleteTask)
	handle("GET /users/me", h.CurrentUser)
	mux.HandleFunc("GET /health", h.Health)
}

type createTaskRequest struct {
	Title     string  `json:"title"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Kind      *string `json:"kind,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

type updateTaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Start     *string `json:"start,omitempty"`
	End       *string `json:"end,omitempty"`
	Kind      *string `json:"kind,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

type taskMessageResponse struct {
	Message string       `json:"message"`
	Task    *models.Task `json:"task"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *TaskHandler) entry(r *http.Request, handler string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"component":  "http_handler",
		"handler":    handler,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

// currentUser находит или создаёт пользователя запроса
func (h *TaskHandler) currentUser(w http.ResponseWriter, r *http.Request, logEntry *logrus.Entry, failMsg string) (*models.User, bool) {
	id, _ := identity.FromContext(r.Context())
	user, err := h.users.Resolve(r.Context(), id)
	if errors.Is(err, service.ErrUnauthenticated) {
		logEntry.Warn("no authenticated user")
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "Unauthorized",
			"message": "Authentication required. Please sign in.",
		})
		return nil, false
	}
	if err != nil {
		logEntry.WithError(err).Error("failed to resolve user")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failMsg, Details: err.Error()})
		return nil, false
	}
	return user, true
}

// ListTasks обрабатывает GET /quests
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "ListTasks")
	const failMsg = "Failed to fetch tasks"

	user, ok := h.currentUser(w, r, logEntry, failMsg)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(r.Context(), user.ID)
	if err != nil {
		logEntry.WithError(err).Error("failed to list tasks")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failMsg, Details: err.Error()})
		return
	}

	logEntry.WithField("count", len(tasks)).Debug("tasks listed")
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask обрабатывает POST /quests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "CreateTask")
	const failMsg = "Failed to create task"

	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	user, ok := h.currentUser(w, r, logEntry, failMsg)
	if !ok {
		return
	}

	task, err := h.taskService.Create(r.Context(), user.ID, service.CreateInput{
		Title:     req.Title,
		Start:     req.Start,
		End:       req.End,
		Kind:      req.Kind,
		Notes:     req.Notes,
		Completed: req.Completed,
	})
	if err != nil {
		h.writeServiceError(w, logEntry, err, failMsg, "")
		return
	}

	logEntry.WithField("task_id", task.ID.Hex()).Info("task created successfully")
	writeJSON(w, http.StatusCreated, taskMessageResponse{Message: "Task added", Task: task})
}

// GetTask обрабатывает GET /quests/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "GetTask")
	id := r.PathValue("id")
	if !validID(w, logEntry, id) {
		return
	}

	user, ok := h.currentUser(w, r, logEntry, "Failed to fetch task")
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), id, user.ID)
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err, "Failed to fetch task", "Not authorized to view this task")
		return
	}

	logEntry.WithField("task_id", id).Debug("task retrieved")
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask обрабатывает PATCH /quests/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "UpdateTask")
	const failMsg = "Failed to update task"
	id := r.PathValue("id")
	if !validID(w, logEntry, id) {
		return
	}

	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	user, ok := h.currentUser(w, r, logEntry, failMsg)
	if !ok {
		return
	}

	task, err := h.taskService.Update(r.Context(), id, user.ID, service.UpdateInput{
		Title:     req.Title,
		Start:     req.Start,
		End:       req.End,
		Kind:      req.Kind,
		Notes:     req.Notes,
		Completed: req.Completed,
	})
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err, failMsg, "Not authorized to update this task")
		return
	}

	logEntry.WithField("task_id", id).Info("task updated successfully")
	writeJSON(w, http.StatusOK, taskMessageResponse{Message: "Task updated", Task: task})
}

// ToggleComplete обрабатывает PATCH /quests/{id}/complete. Тело запроса не читается.
func (h *TaskHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "ToggleComplete")
	const failMsg = "Failed to toggle task completion"
	id := r.PathValue("id")
	if !validID(w, logEntry, id) {
		return
	}

	user, ok := h.currentUser(w, r, logEntry, failMsg)
	if !ok {
		return
	}

	task, msg, err := h.taskService.ToggleComplete(r.Context(), id, user.ID)
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err, failMsg, "Not authorized to update this task")
		return
	}

	logEntry.WithFields(logrus.Fields{"task_id": id, "completed": task.Completed}).Info("task completion toggled")
	writeJSON(w, http.StatusOK, taskMessageResponse{Message: msg, Task: task})
}

// DeleteTask обрабатывает DELETE /quests/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "DeleteTask")
	const failMsg = "Failed to delete task"
	id := r.PathValue("id")
	if !validID(w, logEntry, id) {
		return
	}

	user, ok := h.currentUser(w, r, logEntry, failMsg)
	if !ok {
		return
	}

	taskID, err := h.taskService.Delete(r.Context(), id, user.ID)
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err, failMsg, "Not authorized to delete this task")
		return
	}

	logEntry.WithField("task_id", taskID).Info("task deleted successfully")
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Task deleted successfully",
		"taskId":  taskID,
	})
}

// DaySummary обрабатывает GET /quests/wakie-wakie?date=YYYY-MM-DD
func (h *TaskHandler) DaySummary(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "DaySummary")
	const failMsg = "Failed to generate summary"

	user, ok := h.currentUser(w, r, logEntry, failMsg)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	summary, err := h.summaryService.Summarize(r.Context(), user.ID, date)
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("date", date), err, failMsg, "")
		return
	}

	logEntry.WithField("date", date).Info("summary generated")
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// CurrentUser обрабатывает GET /users/me
func (h *TaskHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "CurrentUser")
	user, ok := h.currentUser(w, r, logEntry, "Failed to fetch user")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Health обрабатывает GET /health, без аутентификации
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

// validID отклоняет id не в форме ObjectID до любых обращений к хранилищу
func validID(w http.ResponseWriter, logEntry *logrus.Entry, id string) bool {
	if _, ok := models.ParseID(id); ok {
		return true
	}
	logEntry.WithField("task_id", id).Warn("invalid task id")
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid task ID format"})
	return false
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ
func (h *TaskHandler) writeServiceError(w http.ResponseWriter, logEntry *logrus.Entry, err error, failMsg, forbiddenMsg string) {
	if v, ok := service.IsValidation(err); ok {
		logEntry.WithError(err).Warn("validation failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: v.Message})
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidID):
		logEntry.Warn("invalid task id")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid task ID format"})
	case errors.Is(err, service.ErrNotFound):
		logEntry.Warn("task not found")
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Task not found"})
	case errors.Is(err, service.ErrForbidden):
		logEntry.Warn("task belongs to another user")
		writeJSON(w, http.StatusForbidden, errorResponse{Error: forbiddenMsg})
	default:
		logEntry.WithError(err).Error(failMsg)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failMsg, Details: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody разбирает JSON-тело; пустое тело считается пустым объектом
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
