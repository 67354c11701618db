// Package handler exposes a recipient's notification feed over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chrona/internal/notification"
	dErrors "chrona/pkg/domain-errors"
	"chrona/pkg/platform/httputil"
	"chrona/pkg/requestcontext"
)

// Handler wires notification endpoints to the notification store.
type Handler struct {
	store  notification.Store
	logger *slog.Logger
}

// New constructs a notification handler with its dependencies.
func New(store notification.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
}

// NotificationResponse is the wire shape of a single notification.
type NotificationResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListResponse is the wire shape of GET /notifications.
type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

// HandleList handles GET /notifications requests. Recipients only ever see
// their own feed.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	notifications, err := h.store.ListByRecipient(ctx, actorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "notification listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actorID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications"))
		return
	}

	resp := ListResponse{Notifications: make([]NotificationResponse, 0, len(notifications))}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, NotificationResponse{
			ID:        n.ID.String(),
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Status:    string(n.Status),
			SentAt:    n.SentAt,
			CreatedAt: n.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
