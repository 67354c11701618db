// Package handler exposes the workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chrona/internal/auditlog"
	"chrona/internal/workflow/models"
	"chrona/internal/workflow/service"
	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
	"chrona/pkg/platform/httputil"
	"chrona/pkg/requestcontext"
)

// Service defines the interface for workflow operations.
type Service interface {
	Submit(ctx context.Context, actorID id.UserID, params service.SubmitParams) (*models.Subject, error)
	RequestTransition(ctx context.Context, actorID id.UserID, ref models.Ref, to models.Status, comment string) (*models.Subject, *auditlog.Entry, error)
	History(ctx context.Context, ref models.Ref) ([]auditlog.Entry, error)
	Delete(ctx context.Context, actorID id.UserID, ref models.Ref) error
}

// Handler wires workflow endpoints to the workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a workflow handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/workflow/{kind}", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/transitions", h.HandleTransition)
			r.Get("/history", h.HandleHistory)
			r.Delete("/", h.HandleDelete)
		})
	})
}

// parseRef resolves the {kind}/{id} route parameters. On failure it writes
// the error response and returns ok=false.
func parseRef(w http.ResponseWriter, r *http.Request) (models.Ref, bool) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.Ref{}, false
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.Ref{}, false
	}
	return models.Ref{Kind: kind, ID: subjectID}, true
}

// HandleSubmit handles POST /workflow/{kind} requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	start, end := req.ParsedDates()
	subject, err := h.service.Submit(ctx, actorID, service.SubmitParams{
		Kind:      kind,
		OrgID:     req.ParsedOrgID(),
		TeamID:    req.ParsedTeamID(),
		StartDate: start,
		EndDate:   end,
		Category:  req.Category,
		Notes:     req.Notes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "subject submission failed",
			"request_id", requestID,
			"actor_id", actorID,
			"kind", string(kind),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subject submitted",
		"request_id", requestID,
		"actor_id", actorID,
		"subject_id", subject.ID,
		"kind", string(kind),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSubject(subject))
}

// HandleTransition handles POST /workflow/{kind}/{id}/transitions requests.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	ref, ok := parseRef(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subject, entry, err := h.service.RequestTransition(ctx, actorID, ref, req.ParsedTo(), req.Comment)
	if err != nil {
		// Denials and conflicts are expected traffic, not server faults.
		level := slog.LevelWarn
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "transition rejected",
			"request_id", requestID,
			"actor_id", actorID,
			"subject_id", ref.ID,
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transition accepted",
		"request_id", requestID,
		"actor_id", actorID,
		"subject_id", ref.ID,
		"to", req.To,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, TransitionResponse{
		Subject: FromSubject(subject),
		Entry:   FromEntry(*entry),
	})
}

// HandleHistory handles GET /workflow/{kind}/{id}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	ref, ok := parseRef(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(ctx, ref)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := HistoryResponse{
		SubjectID: ref.ID.String(),
		Kind:      string(ref.Kind),
		Entries:   make([]EntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, FromEntry(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /workflow/{kind}/{id} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	ref, ok := parseRef(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, actorID, ref); err != nil {
		h.logger.WarnContext(ctx, "subject deletion rejected",
			"request_id", requestID,
			"actor_id", actorID,
			"subject_id", ref.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
