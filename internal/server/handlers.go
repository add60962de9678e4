package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"hubmirror/internal/domain"
	"hubmirror/internal/service"
)

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !s.authorized(r) {
		msg := "You do not have permission to run imports."
		detail := "request lacked a valid admin token"
		if err := s.runlog.Append(ctx, &domain.RunLog{
			Trigger:     domain.TriggerManual,
			Status:      domain.RunError,
			Message:     msg,
			ErrorDetail: &detail,
		}); err != nil {
			s.logger.Error("failed to log denied sync attempt", "error", err)
		}
		s.writeError(w, http.StatusUnauthorized, msg)
		return
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	result, err := s.syncer.Run(ctx, settings, domain.TriggerManual)
	status := http.StatusOK
	if errors.Is(err, service.ErrAlreadyRunning) {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	ok, message := s.prober.TestConnection(r.Context(), settings.APIToken)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": ok,
		"message": message,
	})
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	blogs, err := s.prober.ListBlogs(r.Context(), settings.APIToken)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"blogs": blogs})
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	if perPage > 100 {
		perPage = 100
	}

	entries, total, err := s.runlog.Page(ctx, page, perPage)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}

	successCount, err := s.runlog.CountByStatus(ctx, domain.RunSuccess)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}
	errorCount, err := s.runlog.CountByStatus(ctx, domain.RunError)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}

	if entries == nil {
		entries = []domain.RunLog{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"logs":          entries,
		"total":         total,
		"page":          page,
		"per_page":      perPage,
		"success_count": successCount,
		"error_count":   errorCount,
	})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.runlog.ClearAll(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to clear logs")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	lastManual, err := s.options.Get(ctx, service.OptionLastManual)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}
	lastScheduled, err := s.options.Get(ctx, service.OptionLastScheduled)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	totalImported, err := s.posts.CountImported(ctx, settings.PostType)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"api_configured":      settings.APIToken != "",
		"sync_enabled":        settings.SyncEnabled,
		"sync_interval":       settings.Interval,
		"post_type":           settings.PostType,
		"post_status":         settings.PostStatus,
		"last_manual_sync":    lastManual,
		"last_scheduled_sync": lastScheduled,
		"total_imported":      totalImported,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	// The token itself is never echoed back.
	s.writeJSON(w, http.StatusOK, map[string]any{
		"api_configured": settings.APIToken != "",
		"post_type":      settings.PostType,
		"post_status":    settings.PostStatus,
		"sync_enabled":   settings.SyncEnabled,
		"sync_interval":  settings.Interval,
	})
}

type settingsRequest struct {
	APIToken     *string `json:"api_token"`
	PostType     *string `json:"post_type" validate:"omitempty,min=1,max=32"`
	PostStatus   *string `json:"post_status" validate:"omitempty,oneof=publish draft pending private"`
	SyncEnabled  *bool   `json:"sync_enabled"`
	SyncInterval *string `json:"sync_interval" validate:"omitempty,oneof=hourly twicedaily daily weekly"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	if req.APIToken != nil {
		settings.APIToken = *req.APIToken
	}
	if req.PostType != nil {
		settings.PostType = *req.PostType
	}
	if req.PostStatus != nil {
		settings.PostStatus = domain.Status(*req.PostStatus)
	}
	if req.SyncEnabled != nil {
		settings.SyncEnabled = *req.SyncEnabled
	}
	if req.SyncInterval != nil {
		settings.Interval = domain.Interval(*req.SyncInterval)
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.sched.Reschedule(settings.SyncEnabled, settings.Interval.Duration())

	s.writeJSON(w, http.StatusOK, map[string]any{
		"post_type":     settings.PostType,
		"post_status":   settings.PostStatus,
		"sync_enabled":  settings.SyncEnabled,
		"sync_interval": settings.Interval,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
