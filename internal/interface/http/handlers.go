package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/application/query"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports liveness plus the result of every check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		handlers.WriteJSON(w, r, http.StatusOK, map[string]string{
			"status": "healthy",
			"uptime": s.Uptime().String(),
		})
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, s.deps.Health.Check(r.Context()))
}

// handleReady answers 503 while a critical dependency is down.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		status := s.deps.Health.Check(r.Context())
		if !status.Ready {
			handlers.WriteJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type submitApplicationRequest struct {
	OfferID    string `json:"offer_id"`
	Motivation string `json:"motivation"`
}

// handleSubmitApplication handles POST /api/v1/applications
func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req submitApplicationRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	res, err := s.deps.SubmitApplication.Handle(r.Context(), command.SubmitApplicationCommand{
		Caller:     caller(r),
		OfferID:    req.OfferID,
		Motivation: req.Motivation,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusCreated, query.NewApplicationDTO(res.Application))
}

// handleGetApplication handles GET /api/v1/applications/{id}
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.Applications.Get(r.Context(), query.GetApplicationQuery{
		Caller:        caller(r),
		ApplicationID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, dto)
}

// handleAcceptApplication handles POST /api/v1/applications/{id}/accept
func (s *Server) handleAcceptApplication(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.AcceptApplication.Handle(r.Context(), command.AcceptApplicationCommand{
		Caller:        caller(r),
		ApplicationID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]any{
		"application": query.NewApplicationDTO(res.Application),
		"agreement":   query.NewAgreementDTO(res.Agreement),
	})
}

type rejectApplicationRequest struct {
	Comment *string `json:"comment"`
}

// handleRejectApplication handles POST /api/v1/applications/{id}/reject
func (s *Server) handleRejectApplication(w http.ResponseWriter, r *http.Request) {
	var req rejectApplicationRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	res, err := s.deps.RejectApplication.Handle(r.Context(), command.RejectApplicationCommand{
		Caller:        caller(r),
		ApplicationID: chi.URLParam(r, "id"),
		Comment:       req.Comment,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, query.NewApplicationDTO(res.Application))
}

// handleWithdrawApplication handles DELETE /api/v1/applications/{id}
func (s *Server) handleWithdrawApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.WithdrawApplication.Handle(r.Context(), command.WithdrawApplicationCommand{
		Caller:        caller(r),
		ApplicationID: id,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// handleListStudentApplications handles GET /api/v1/students/{id}/applications
func (s *Server) handleListStudentApplications(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Applications.ListByStudent(r.Context(), query.ListApplicationsByStudentQuery{
		Caller:    caller(r),
		StudentID: chi.URLParam(r, "id"),
		Page:      pageRequest(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// handleListOfferApplications handles GET /api/v1/offers/{id}/applications
func (s *Server) handleListOfferApplications(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Applications.ListByOffer(r.Context(), query.ListApplicationsByOfferQuery{
		Caller:  caller(r),
		OfferID: chi.URLParam(r, "id"),
		Page:    pageRequest(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// ══════════════════════════════════════════════════════════════════════════════
// AGREEMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListAgreements handles GET /api/v1/agreements?status=
func (s *Server) handleListAgreements(w http.ResponseWriter, r *http.Request) {
	qry := query.ListAgreementsQuery{Caller: caller(r), Page: pageRequest(r)}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := agreement.ParseStatus(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		qry.Status = &st
	}

	page, err := s.deps.Agreements.ListAll(r.Context(), qry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// handleGetAgreement handles GET /api/v1/agreements/{id}
func (s *Server) handleGetAgreement(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.Agreements.Get(r.Context(), query.GetAgreementQuery{
		Caller:      caller(r),
		AgreementID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, dto)
}

type signAgreementRequest struct {
	Party string `json:"party"`
}

type signAgreementResponse struct {
	Agreement     query.AgreementDTO `json:"agreement"`
	Completed     bool               `json:"completed"`
	DocumentError string             `json:"document_error,omitempty"`
}

// handleSignAgreement handles POST /api/v1/agreements/{id}/sign
func (s *Server) handleSignAgreement(w http.ResponseWriter, r *http.Request) {
	var req signAgreementRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	party, err := agreement.ParseParty(req.Party)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.SignAgreement.Handle(r.Context(), command.SignAgreementCommand{
		Caller:      caller(r),
		AgreementID: chi.URLParam(r, "id"),
		Party:       party,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := signAgreementResponse{
		Agreement: query.NewAgreementDTO(res.Agreement),
		Completed: res.Completed,
	}
	if res.RenderError != nil {
		resp.DocumentError = "document generation is pending"
	}
	handlers.WriteJSON(w, r, http.StatusOK, resp)
}

type generateDocumentRequest struct {
	Regenerate bool `json:"regenerate"`
}

// handleGenerateDocument handles POST /api/v1/agreements/{id}/document
func (s *Server) handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	var req generateDocumentRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	res, err := s.deps.GenerateDocument.Handle(r.Context(), command.GenerateDocumentCommand{
		Caller:      caller(r),
		AgreementID: chi.URLParam(r, "id"),
		Regenerate:  req.Regenerate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]any{
		"document_ref": res.DocumentRef,
		"rendered":     res.Rendered,
	})
}

// handleArchiveAgreement handles POST /api/v1/agreements/{id}/archive
func (s *Server) handleArchiveAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.ArchiveAgreement.Handle(r.Context(), command.ArchiveAgreementCommand{
		Caller:      caller(r),
		AgreementID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, query.NewAgreementDTO(a))
}

// handleListStudentAgreements handles GET /api/v1/students/{id}/agreements
func (s *Server) handleListStudentAgreements(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Agreements.ListByStudent(r.Context(), query.ListAgreementsQuery{
		Caller:    caller(r),
		StudentID: chi.URLParam(r, "id"),
		Page:      pageRequest(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// handleListCompanyAgreements handles GET /api/v1/companies/{id}/agreements
func (s *Server) handleListCompanyAgreements(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Agreements.ListByCompany(r.Context(), query.ListAgreementsQuery{
		Caller:    caller(r),
		CompanyID: chi.URLParam(r, "id"),
		Page:      pageRequest(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUPERVISION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type assignTutorRequest struct {
	TutorID string `json:"tutor_id"`
}

// handleAssignTutor handles POST /api/v1/agreements/{id}/supervision
func (s *Server) handleAssignTutor(w http.ResponseWriter, r *http.Request) {
	var req assignTutorRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	res, err := s.deps.AssignTutor.Handle(r.Context(), command.AssignTutorCommand{
		Caller:      caller(r),
		AgreementID: chi.URLParam(r, "id"),
		TutorID:     req.TutorID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, query.NewSupervisionDTO(res.Supervision))
}

// handleListSupervisions handles GET /api/v1/supervisions
func (s *Server) handleListSupervisions(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Supervisions.ListAll(r.Context(), query.ListSupervisionsQuery{
		Caller: caller(r),
		Page:   pageRequest(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// handleGetSupervision handles GET /api/v1/supervisions/{id}
func (s *Server) handleGetSupervision(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.Supervisions.Get(r.Context(), query.GetSupervisionQuery{
		Caller:        caller(r),
		SupervisionID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, dto)
}

type updateProgressRequest struct {
	Progress  *string `json:"progress"`
	Notes     *string `json:"notes"`
	LastVisit *string `json:"last_visit"`
}

// handleUpdateProgress handles PATCH /api/v1/supervisions/{id}. Absent
// fields are left unchanged.
func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	cmd := command.UpdateProgressCommand{
		Caller:        caller(r),
		SupervisionID: chi.URLParam(r, "id"),
		Progress:      req.Progress,
		Notes:         req.Notes,
	}
	if req.LastVisit != nil {
		t, err := parseDay(*req.LastVisit)
		if err != nil {
			s.writeError(w, r, shared.InvalidInput("supervision", "UpdateProgress", "last_visit must be YYYY-MM-DD or RFC 3339"))
			return
		}
		cmd.LastVisit = &t
	}

	sup, err := s.deps.UpdateProgress.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, query.NewSupervisionDTO(sup))
}

// handleListTutorSupervisions handles GET /api/v1/tutors/{id}/supervisions
func (s *Server) handleListTutorSupervisions(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Supervisions.ListByTutor(r.Context(), query.ListSupervisionsQuery{
		Caller:  caller(r),
		TutorID: chi.URLParam(r, "id"),
		Page:    pageRequest(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// handleGetActiveSupervision handles GET /api/v1/students/{id}/supervision
func (s *Server) handleGetActiveSupervision(w http.ResponseWriter, r *http.Request) {
	dto, ok, err := s.deps.Supervisions.ActiveForStudent(r.Context(), query.ActiveSupervisionQuery{
		Caller:    caller(r),
		StudentID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]any{
		"active":      ok,
		"supervision": dto,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListNotifications handles GET /api/v1/notifications
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Notifications.List(r.Context(), caller(r), pageRequest(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, page)
}

// handleUnreadCount handles GET /api/v1/notifications/unread-count
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Notifications.UnreadCount(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]int{"unread": n})
}

// handleMarkRead handles POST /api/v1/notifications/{id}/read
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.NotificationRead.MarkRead(r.Context(), command.MarkNotificationReadCommand{
		Caller:         caller(r),
		NotificationID: id,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]any{"id": id, "read": true})
}

// handleMarkAllRead handles POST /api/v1/notifications/read-all
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.NotificationRead.MarkAllRead(r.Context(), command.MarkAllNotificationsReadCommand{
		Caller: caller(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, map[string]int{"marked": n})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// caller returns the authenticated principal. Routes under /api/v1 always
// have one; a zero principal fails validation in every handler.
func caller(r *http.Request) account.Principal {
	p, _ := handlers.PrincipalFrom(r.Context())
	return p
}

// decode reads a JSON body. An empty body is accepted unless required.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, required bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF) && !required:
		return true
	case errors.Is(err, io.EOF):
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_input", "request body is required")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_input", "malformed JSON body: "+err.Error())
	}
	return false
}

// pageRequest reads ?offset= and ?limit=; bad values fall back to defaults.
func pageRequest(r *http.Request) shared.PageRequest {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return shared.PageRequest{Offset: offset, Limit: limit}.Normalize()
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// writeError maps an error kind to an HTTP status. Unexpected errors are
// logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := http.StatusText(status)

	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" && status < http.StatusInternalServerError {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	handlers.WriteError(w, r, status, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusUnprocessableEntity, "invalid_state"
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, shared.ErrServiceUnavailable),
		errors.Is(err, shared.ErrTimeout),
		errors.Is(err, shared.ErrRateLimited):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
