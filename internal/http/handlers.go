package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"expensetracker/internal/api"
	"expensetracker/internal/charts"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready only when the remote backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	if _, err := s.deps.Health.Health(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Backend not ready", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) loadDashboard(r *http.Request, sess session.Session) (core.Dashboard, int, error) {
	year, month, err := parseYearMonth(r, s.now())
	if err != nil {
		return core.Dashboard{}, http.StatusBadRequest, err
	}

	load := func(ctx context.Context) (core.Dashboard, error) {
		return s.deps.Dashboards.Load(ctx, sess, year, month)
	}
	var d core.Dashboard
	if s.dashboards != nil {
		d, err = s.dashboards.GetOrLoad(r.Context(), dashboardKey(sess.UserID, year, month), load)
	} else {
		d, err = load(r.Context())
	}
	if err != nil {
		return core.Dashboard{}, statusFor(err), err
	}
	return d, http.StatusOK, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess session.Session) {
	d, status, err := s.loadDashboard(r, sess)
	if err != nil {
		if status == http.StatusBadRequest {
			writeError(w, status, err.Error())
			return
		}
		s.respondError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, sess session.Session) {
	d, status, err := s.loadDashboard(r, sess)
	if err != nil {
		if status == http.StatusBadRequest {
			writeError(w, status, err.Error())
			return
		}
		s.respondError(w, r, log.OpRender, err)
		return
	}

	png, err := charts.RenderBreakdown(chartTitle(d), d.CategoryBreakdown)
	if errors.Is(err, charts.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.respondError(w, r, log.OpRender, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var filter api.DealFilter
	if r.URL.Query().Get("mine") == "true" {
		id := sess.UserID
		filter.UserID = &id
	}
	deals, err := s.deps.Deals.List(r.Context(), sess, filter)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	if deals == nil {
		deals = []core.Deal{}
	}
	writeJSON(w, http.StatusOK, deals)
}

// handleVote serves POST /deals/{id}/upvote and /deals/{id}/downvote.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dir, err := core.ParseDirection(r.PathValue("direction"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown vote action")
		return
	}

	d, err := s.deps.Deals.VoteByID(r.Context(), sess, id, dir)
	if err != nil {
		s.respondError(w, r, log.OpVote, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, sess session.Session) {
	list, err := s.deps.Goals.List(r.Context(), sess)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req api.CreateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.deps.Goals.Create(r.Context(), sess, req)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	s.invalidateDashboards(sess.UserID)
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req api.UpdateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.deps.Goals.Update(r.Context(), sess, id, req)
	if err != nil {
		s.respondError(w, r, log.OpUpdate, err)
		return
	}
	s.invalidateDashboards(sess.UserID)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Goals.Delete(r.Context(), sess, id); err != nil {
		s.respondError(w, r, log.OpDelete, err)
		return
	}
	s.invalidateDashboards(sess.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if s.deps.Notifications == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications are not enabled")
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	list, err := s.deps.Notifications.ListNotifications(r.Context(), sess.UserID, unread)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if s.deps.Notifications == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications are not enabled")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Notifications.MarkNotificationRead(r.Context(), sess.UserID, id); err != nil {
		s.respondError(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func chartTitle(d core.Dashboard) string {
	if len(d.Start) < 7 {
		return "Spending"
	}
	return "Spending " + d.Start[:7]
}
