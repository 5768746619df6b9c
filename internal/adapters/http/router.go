// Package httpadapter exposes the capture pipeline over REST.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/core/ports"
	"github.com/kirillkom/dash-voice/internal/observability/metrics"
)

type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	AcquireTimeout time.Duration
}

type Router struct {
	submit      ports.CaptureSubmitter
	lifecycle   ports.CaptureLifecycle
	tasks       ports.TaskStore
	reflections ports.ReflectionStore
	goals       ports.GoalStore
	tokens      ports.TranscriptionTokenIssuer

	metrics *metrics.HTTPServerMetrics
	service string
	traffic TrafficConfig
}

func NewRouter(
	submit ports.CaptureSubmitter,
	lifecycle ports.CaptureLifecycle,
	tasks ports.TaskStore,
	reflections ports.ReflectionStore,
	goals ports.GoalStore,
	tokens ports.TranscriptionTokenIssuer,
	serverMetrics *metrics.HTTPServerMetrics,
	service string,
	traffic TrafficConfig,
) *Router {
	return &Router{
		submit:      submit,
		lifecycle:   lifecycle,
		tasks:       tasks,
		reflections: reflections,
		goals:       goals,
		tokens:      tokens,
		metrics:     serverMetrics,
		service:     service,
		traffic:     traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/captures", rt.captures)
	api.HandleFunc("/v1/captures/", rt.captureDecision)
	api.HandleFunc("/v1/tasks", rt.listTasks)
	api.HandleFunc("/v1/tasks/", rt.updateTask)
	api.HandleFunc("/v1/reflections", rt.listReflections)
	api.HandleFunc("/v1/goals", rt.listGoals)
	api.HandleFunc("/v1/goals/", rt.updateGoal)
	api.HandleFunc("/v1/voice/token", rt.voiceToken)

	var apiHandler http.Handler = api
	if rt.traffic.MaxConcurrent > 0 {
		apiHandler = backpressureMiddleware(apiHandler, rt.traffic.MaxConcurrent, rt.traffic.AcquireTimeout)
	}
	if rt.traffic.RateLimitRPS > 0 {
		apiHandler = rateLimitMiddleware(apiHandler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	}

	root := http.NewServeMux()
	root.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		root.Handle("/metrics", rt.metrics.Handler())
	}
	root.Handle("/v1/", apiHandler)

	handler := accessLogMiddleware(requestIDMiddleware(root))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type captureContextPayload struct {
	CurrentView    string   `json:"current_view"`
	ActiveTask     string   `json:"active_task"`
	Time           string   `json:"time"`
	RecentCaptures []string `json:"recent_captures"`
}

func (rt *Router) captures(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.submitCapture(w, r)
	case http.MethodGet:
		rt.listCaptures(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) submitCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript string                `json:"transcript"`
		Context    captureContextPayload `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	capture, err := rt.submit.Submit(r.Context(), req.Transcript, domain.CaptureContext{
		CurrentView:    req.Context.CurrentView,
		ActiveTask:     req.Context.ActiveTask,
		Time:           req.Context.Time,
		RecentCaptures: req.Context.RecentCaptures,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		degraded := capture.Mode == domain.ModeUncertain && capture.Confidence == 0
		rt.metrics.RecordExtraction(rt.service, degraded, time.Since(start))
		rt.metrics.RecordCaptureSubmitted(rt.service, string(capture.Mode))
	}
	writeJSON(w, http.StatusCreated, capture)
}

func (rt *Router) listCaptures(w http.ResponseWriter, r *http.Request) {
	status := domain.CaptureStatus(r.URL.Query().Get("status"))
	captures, err := rt.lifecycle.List(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": captures})
}

func (rt *Router) captureDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/captures/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id, action := parts[0], parts[1]

	switch action {
	case "accept":
		rt.acceptCapture(w, r, id)
	case "reject":
		rt.rejectCapture(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) acceptCapture(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		StructuredData map[string]any `json:"structured_data"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	result, err := rt.lifecycle.Accept(r.Context(), id, req.StructuredData)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordCaptureDecision(rt.service, "accepted")
		rt.metrics.RecordEntitiesCreated(rt.service, "task", len(result.Tasks))
		rt.metrics.RecordEntitiesCreated(rt.service, "reflection", len(result.Reflections))
		rt.metrics.RecordEntitiesCreated(rt.service, "goal", len(result.Goals))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) rejectCapture(w http.ResponseWriter, r *http.Request, id string) {
	capture, err := rt.lifecycle.Reject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordCaptureDecision(rt.service, "rejected")
	}
	writeJSON(w, http.StatusOK, capture)
}

func (rt *Router) listTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	tasks, err := rt.tasks.ListTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (rt *Router) updateTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var patch domain.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown task status"})
		return
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown task priority"})
		return
	}

	task, err := rt.tasks.UpdateTask(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) listReflections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	reflections, err := rt.reflections.ListReflections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reflections": reflections})
}

func (rt *Router) listGoals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	goals, err := rt.goals.ListGoals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (rt *Router) updateGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/goals/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var patch domain.GoalPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown goal status"})
		return
	}

	goal, err := rt.goals.UpdateGoal(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (rt *Router) voiceToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	token, err := rt.tokens.IssueToken(r.Context())
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrProviderUnavailable) {
			rt.metrics.RecordTokenRejected(rt.service)
		}
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordTokenIssued(rt.service)
	}
	writeJSON(w, http.StatusOK, token)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
