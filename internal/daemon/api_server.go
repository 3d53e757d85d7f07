package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scenetrack/internal/analysis"
	"scenetrack/internal/api"
	"scenetrack/internal/config"
	"scenetrack/internal/logging"
	"scenetrack/internal/queue"
	"scenetrack/internal/services"
	"scenetrack/internal/trigger"
)

// badPushMessage is returned when a push body has no message.
const badPushMessage = "Bad Request: invalid Pub/Sub message format"

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	jobs   *api.JobService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		jobs:   api.NewJobService(d.store),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Synchronous analysis holds the connection until publishing ends.
		WriteTimeout: cfg.AnnotationMaxWait() + time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoveryMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(token))

		r.Post("/", s.handlePush)
		r.Route("/api", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/jobs", s.handleListJobs)
			r.Post("/jobs", s.handleEnqueuePush)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Post("/jobs/{id}/retry", s.handleRetryJob)
			r.Post("/events/storage", s.handleStorageEvent)
		})
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "ok",
		UptimeS: int64(s.daemon.Uptime().Seconds()),
	})
}

// handlePush analyses a pushed video synchronously and answers with the
// pipeline result.
func (s *apiServer) handlePush(w http.ResponseWriter, r *http.Request) {
	video, _, err := trigger.DecodePush(r.Body)
	if err != nil {
		message := badPushMessage
		if !trigger.IsBadPush(err) {
			message = "Bad Request: " + err.Error()
		}
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "rejected push request", "push_rejected",
			logging.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, analysis.Result{Message: message})
		return
	}

	result, err := s.daemon.Analyze(r.Context(), video)
	if err != nil {
		if result.VideoID == "" {
			result.VideoID = video.ID
		}
		if result.Message == "" {
			result.Message = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleEnqueuePush(w http.ResponseWriter, r *http.Request) {
	video, _, err := trigger.DecodePush(r.Body)
	if err != nil {
		message := err.Error()
		if trigger.IsBadPush(err) {
			message = badPushMessage
		}
		writeError(w, http.StatusBadRequest, message, "BAD_REQUEST")
		return
	}
	s.enqueue(w, r, video)
}

func (s *apiServer) handleStorageEvent(w http.ResponseWriter, r *http.Request) {
	video, err := trigger.DecodeStorageEvent(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	s.enqueue(w, r, video)
}

func (s *apiServer) enqueue(w http.ResponseWriter, r *http.Request, video trigger.Video) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	job, created, err := s.daemon.Enqueue(r.Context(), video, requestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusAccepted
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, api.JobResponse{Job: api.FromJob(job), Created: created})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Watching:     status.Watching,
		Workflow:     api.FromStatusSummary(status.Workflow),
	})
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", part), "BAD_REQUEST")
				return
			}
			statuses = append(statuses, status)
		}
	}
	jobs, err := s.jobs.List(r.Context(), statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if jobs == nil {
		jobs = []api.Job{}
	}
	writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.jobs.Describe(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
		return
	}
	if job.Status != queue.StatusFailed && job.Status != queue.StatusReview {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, only failed or review jobs can be retried", job.Status), "CONFLICT")
		return
	}
	updated, err := s.daemon.RetryJobs(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, api.RetryResponse{Updated: updated})
}

func jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid job id", "BAD_REQUEST")
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, api.ErrorResponse{Error: message, Code: code})
}
