package attachment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/transport"
	"github.com/satriajat/helpdesk-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (ticketID, attachmentID int64, ok bool) {
	var err error
	ticketID, err = strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleServiceError(w, internal.ErrTicketNotFound)
		return 0, 0, false
	}
	if raw := chi.URLParam(r, "attachmentID"); raw != "" {
		attachmentID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleServiceError(w, internal.ErrAttachmentNotFound)
			return 0, 0, false
		}
	}
	return ticketID, attachmentID, true
}

func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ticketID, _, ok := h.ids(w, r)
	if !ok {
		return
	}

	var dto PresignUploadDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Presign(r.Context(), actor, ticketID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, false)
}

func (h *Handler) DownloadForAgent(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, true)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, asAgent bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ticketID, attachmentID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var (
		resp *DownloadResponse
		err  error
	)
	if asAgent {
		resp, err = h.Service.DownloadForAgent(r.Context(), actor, ticketID, attachmentID)
	} else {
		resp, err = h.Service.Download(r.Context(), actor, ticketID, attachmentID)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
