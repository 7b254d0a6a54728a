// internal/interfaces/http/handlers/notification_handler.go

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/interfaces/http/middleware"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

const defaultNotificationLimit = 50

type NotificationHandler struct {
	notifications domnotification.Repository
	logger        logging.Logger
}

func NewNotificationHandler(notifications domnotification.Repository, log logging.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: log.Named("notification_handler")}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantFromContext(r.Context())
	userID, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, errors.New(errors.ErrCodeBadRequest, "caller identity missing"))
		return
	}

	limit := queryInt(r, "limit", defaultNotificationLimit)
	items, err := h.notifications.ListByRecipient(r.Context(), tenantID, userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

// MarkRead flips one notification's read flag. Re-reading is a no-op.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantFromContext(r.Context())
	id := common.ID(chi.URLParam(r, "notificationID"))

	if err := h.notifications.MarkRead(r.Context(), tenantID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]interface{}{"id": id, "read": true})
}
