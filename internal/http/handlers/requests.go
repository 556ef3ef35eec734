package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkflow/server/internal/middleware"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/repo"
	"github.com/inkflow/server/internal/storage"
)

// RequestHandler is the owner-facing seed surface: creating signature
// requests and assigning signer slots on them.
type RequestHandler struct {
	users    repo.UserRepo
	requests repo.RequestRepo
	fields   repo.FieldRepo
	blobs    storage.BlobStore
	logger   *zap.Logger
}

func NewRequestHandler(users repo.UserRepo, requests repo.RequestRepo, fields repo.FieldRepo, blobs storage.BlobStore, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{users: users, requests: requests, fields: fields, blobs: blobs, logger: logger}
}

type createRequestRequest struct {
	DocumentName string `json:"documentName"`
	DocumentPath string `json:"documentPath"`
}

type requestResponse struct {
	ID           uuid.UUID `json:"id"`
	DocumentName string    `json:"documentName"`
	DocumentPath string    `json:"documentPath"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateRequest registers an uploaded document as a signature request. The
// document must already be present in blob storage at documentPath.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "missing owner identity")
		return
	}

	var req createRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocumentName == "" || req.DocumentPath == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request", "documentName and documentPath are required")
		return
	}
	if _, err := h.blobs.Download(r.Context(), req.DocumentPath); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request", "no document stored at documentPath")
		return
	}

	if err := h.users.Ensure(r.Context(), owner.UserID, owner.Email); err != nil {
		h.logger.Error("failed to ensure owner account", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	created, err := h.requests.Create(r.Context(), owner.UserID, req.DocumentName, req.DocumentPath)
	if err != nil {
		h.logger.Error("failed to create signature request", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	respondWithJSON(w, http.StatusCreated, requestResponse{
		ID:           created.ID,
		DocumentName: created.DocumentName,
		DocumentPath: created.DocumentPath,
		Status:       string(created.Status),
		CreatedAt:    created.CreatedAt,
	})
}

type addFieldRequest struct {
	SignerEmail string  `json:"signerEmail"`
	Type        string  `json:"type"`
	Page        int     `json:"page"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Required    *bool   `json:"required,omitempty"`
}

type fieldResponse struct {
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"requestId"`
	SignerEmail string    `json:"signerEmail"`
	Type        string    `json:"type"`
	Page        int       `json:"page"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Required    bool      `json:"required"`
}

// AddField assigns a signer slot to a request. Coordinates are top-left
// origin in PDF points; the stamper converts to PDF coordinates at signing.
func (h *RequestHandler) AddField(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "missing owner identity")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request", "request id must be a UUID")
		return
	}

	var req addFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fieldType := model.FieldType(req.Type)
	switch {
	case req.SignerEmail == "" || !strings.Contains(req.SignerEmail, "@"):
		respondWithError(w, http.StatusBadRequest, "invalid request", "signerEmail must be an email address")
		return
	case fieldType != model.FieldSignature && fieldType != model.FieldInitials:
		respondWithError(w, http.StatusBadRequest, "invalid request", "type must be signature or initials")
		return
	case req.Page < 1:
		respondWithError(w, http.StatusBadRequest, "invalid request", "page must be 1 or greater")
		return
	case req.Width <= 0 || req.Height <= 0:
		respondWithError(w, http.StatusBadRequest, "invalid request", "width and height must be positive")
		return
	}

	request, err := h.requests.GetByID(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "request not found", "")
			return
		}
		h.logger.Error("failed to load request", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	if request.UserID != owner.UserID {
		respondWithError(w, http.StatusForbidden, "not the owner of this request", "")
		return
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}
	field, err := h.fields.Create(r.Context(), model.SignatureField{
		RequestID:   requestID,
		SignerEmail: strings.ToLower(req.SignerEmail),
		Type:        fieldType,
		Page:        req.Page,
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
		Required:    required,
	})
	if err != nil {
		h.logger.Error("failed to create field", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	respondWithJSON(w, http.StatusCreated, fieldResponse{
		ID:          field.ID,
		RequestID:   field.RequestID,
		SignerEmail: field.SignerEmail,
		Type:        string(field.Type),
		Page:        field.Page,
		X:           field.X,
		Y:           field.Y,
		Width:       field.Width,
		Height:      field.Height,
		Required:    field.Required,
	})
}
