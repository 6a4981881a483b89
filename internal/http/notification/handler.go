package notification

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

const maxBodySize = 10 << 20

type Handler struct {
	svc      *notification.Service
	validate *validator.Validate
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/send", h.send)
}

type attachmentRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required,base64"`
	Type     string `json:"type"`
}

type sendRequest struct {
	To           notification.Recipients `json:"to" validate:"required,min=1,dive,email"`
	Subject      string                  `json:"subject" validate:"required"`
	HTML         string                  `json:"html"`
	TemplateName string                  `json:"template_name"`
	Variables    map[string]any          `json:"variables"`
	Attachments  []attachmentRequest     `json:"attachments" validate:"dive"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body."})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	msg := notification.Message{
		To:           req.To,
		Subject:      req.Subject,
		HTML:         req.HTML,
		TemplateName: req.TemplateName,
		Variables:    req.Variables,
	}

	for _, a := range req.Attachments {
		msg.Attachments = append(msg.Attachments, notification.Attachment(a))
	}

	res, err := h.svc.Send(r.Context(), msg)
	if err != nil {
		switch {
		case errors.Is(err, notification.ErrMissingRecipient):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing 'to' or 'subject'."})
		case errors.Is(err, notification.ErrUnknownTemplate):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unknown template_name."})
		case errors.Is(err, notification.ErrNoContent):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No HTML content provided."})
		case errors.Is(err, notification.ErrInvalidAttachment):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid attachment content."})
		default:
			slog.Error("failed to send email", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}

		return
	}

	writeJSON(w, http.StatusOK, res)
}

// validationMessage maps the first failed rule onto the message the email
// endpoint has always returned for it.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request."
	}

	fe := verrs[0]

	switch {
	case fe.StructField() == "To" || fe.StructField() == "Subject":
		return "Missing 'to' or 'subject'."
	case fe.Tag() == "email":
		return "Invalid recipient address."
	default:
		return "Invalid attachment content."
	}
}
