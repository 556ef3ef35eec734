package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkflow/server/internal/middleware"
	"github.com/inkflow/server/internal/signing"
)

// SigningHandler exposes the signer-facing workflow endpoints.
type SigningHandler struct {
	service *signing.Service
	logger  *zap.Logger
}

func NewSigningHandler(service *signing.Service, logger *zap.Logger) *SigningHandler {
	return &SigningHandler{service: service, logger: logger}
}

type createSessionRequest struct {
	RequestID   string `json:"requestId"`
	SignerEmail string `json:"signerEmail"`
	SignerName  string `json:"signerName,omitempty"`
}

type createSessionResponse struct {
	SessionToken string    `json:"sessionToken"`
	RequestID    uuid.UUID `json:"requestId"`
	SignerEmail  string    `json:"signerEmail"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// CreateSigningSession issues a single-use signing session for one signer
// slot. Owner bearer auth is enforced by middleware; the owner in context is
// checked against the request's owner inside the service.
func (h *SigningHandler) CreateSigningSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "missing owner identity")
		return
	}

	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request", "requestId must be a UUID")
		return
	}
	if req.SignerEmail == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request", "signerEmail is required")
		return
	}

	res, err := h.service.Issue(r.Context(), signing.IssueInput{
		OwnerID:     owner.UserID,
		RequestID:   requestID,
		SignerEmail: req.SignerEmail,
		SignerName:  req.SignerName,
	})
	if err != nil {
		h.respondSigningError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, createSessionResponse{
		SessionToken: res.Token,
		RequestID:    res.RequestID,
		SignerEmail:  res.SignerEmail,
		ExpiresAt:    res.ExpiresAt,
	})
}

type tokenRequest struct {
	Token string `json:"token"`
}

type sessionView struct {
	RequestID        uuid.UUID  `json:"requestId"`
	DocumentName     string     `json:"documentName"`
	DocumentPath     string     `json:"documentPath"`
	Signer           string     `json:"signer"`
	Status           string     `json:"status"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	SignedAt         *time.Time `json:"signedAt,omitempty"`
	OTPVerified      bool       `json:"otpVerified"`
	Completed        bool       `json:"completed"`
	AuditTrailLength int        `json:"auditTrailLength"`
}

// GetSigningSession returns the redacted session view a signer sees before
// verifying. The plaintext signer email never leaves the server here.
func (h *SigningHandler) GetSigningSession(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request", "token is required")
		return
	}

	view, err := h.service.Lookup(r.Context(), req.Token)
	if err != nil {
		h.respondSigningError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sessionView{
		RequestID:        view.RequestID,
		DocumentName:     view.DocumentName,
		DocumentPath:     view.DocumentPath,
		Signer:           view.Signer,
		Status:           string(view.Status),
		ExpiresAt:        view.ExpiresAt,
		SignedAt:         view.SignedAt,
		OTPVerified:      view.OTPVerified,
		Completed:        view.Completed,
		AuditTrailLength: view.AuditTrailLength,
	})
}

type verifyOTPRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type verifyOTPResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

// VerifySigningOTP checks the emailed code and mints the access credential.
func (h *SigningHandler) VerifySigningOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" || len(req.Code) != 6 {
		respondWithError(w, http.StatusBadRequest, "invalid request", "token and 6-digit code are required")
		return
	}

	res, err := h.service.VerifyOTP(r.Context(), req.Token, req.Code)
	if err != nil {
		h.respondSigningError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, verifyOTPResponse{
		Success:     true,
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
		Warning:     res.Warning,
	})
}

type completeSignatureRequest struct {
	Token           string `json:"token"`
	AccessToken     string `json:"accessToken,omitempty"`
	SignatureData   string `json:"signatureData"`
	SignerName      string `json:"signerName"`
	UserAgent       string `json:"userAgent,omitempty"`
	IPAddress       string `json:"ipAddress,omitempty"`
	ConsentAccepted bool   `json:"consentAccepted"`
}

type completeSignatureResponse struct {
	Success      bool   `json:"success"`
	DocumentHash string `json:"documentHash"`
	DownloadPath string `json:"downloadPath"`
	Status       string `json:"status"`
}

// CompleteSignature applies the drawn signature to the document. The client
// IP recorded on the audit certificate comes from the connection (first
// X-Forwarded-For hop), falling back to the body value only when the
// connection gives nothing usable.
func (h *SigningHandler) CompleteSignature(w http.ResponseWriter, r *http.Request) {
	var req completeSignatureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.SignatureData == "" || req.SignerName == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request", "token, signatureData and signerName are required")
		return
	}

	ip := middleware.ClientIP(r)
	if ip == "" {
		ip = req.IPAddress
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	res, err := h.service.Complete(r.Context(), signing.CompleteInput{
		Token:           req.Token,
		AccessToken:     req.AccessToken,
		SignatureData:   req.SignatureData,
		SignerName:      req.SignerName,
		IPAddress:       ip,
		UserAgent:       userAgent,
		ConsentAccepted: req.ConsentAccepted,
	})
	if err != nil {
		h.respondSigningError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, completeSignatureResponse{
		Success:      true,
		DocumentHash: res.DocumentHash,
		DownloadPath: res.DownloadPath,
		Status:       string(res.Status),
	})
}

// respondSigningError maps workflow sentinels to HTTP statuses.
func (h *SigningHandler) respondSigningError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signing.ErrValidation), errors.Is(err, signing.ErrConsentRequired):
		respondWithError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, signing.ErrInvalidCredential),
		errors.Is(err, signing.ErrInvalidCode),
		errors.Is(err, signing.ErrNotVerified):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "")
	case errors.Is(err, signing.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error(), "")
	case errors.Is(err, signing.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, signing.ErrAlreadySigned):
		respondWithError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, signing.ErrSessionExpired), errors.Is(err, signing.ErrOTPExpired):
		respondWithError(w, http.StatusGone, err.Error(), "")
	case errors.Is(err, signing.ErrTooManyAttempts):
		respondWithError(w, http.StatusTooManyRequests, err.Error(), "")
	default:
		h.logger.Error("signing operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
