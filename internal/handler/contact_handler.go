package handler

import (
	"net/http"

	"github.com/hitoshi/portfolio/internal/mail"
	"github.com/hitoshi/portfolio/internal/model"
)

// ContactHandler はお問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	mailer mail.MailerService
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(mailer mail.MailerService) *ContactHandler {
	return &ContactHandler{mailer: mailer}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Send はお問い合わせ内容をサイト所有者にメールで送信する。
// POST /api/contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	if !h.mailer.Configured() {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewMailNotConfiguredError())
		return
	}

	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.mailer.SendContact(r.Context(), &mail.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
