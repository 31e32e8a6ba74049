package handler

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/security/audit"
	"github.com/aryan0dhankhar/leadintake/internal/security/middleware"
	"github.com/aryan0dhankhar/leadintake/internal/service"
	"github.com/aryan0dhankhar/leadintake/internal/validation"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured
const DefaultMaxBodyBytes int64 = 10 << 20

// multipart parts above this size spill to temp files
const multipartMemory = 8 << 20

// LeadHandler handles lead intake and operator endpoints
type LeadHandler struct {
	leads        *service.LeadService
	audit        *audit.Logger
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads *service.LeadService, auditLog *audit.Logger, maxBodyBytes int64, logger *slog.Logger) *LeadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &LeadHandler{
		leads:        leads,
		audit:        auditLog,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// LeadIDRequest identifies a lead in DELETE bodies
type LeadIDRequest struct {
	ID string `json:"id"`
}

// UpdateStatusRequest is the PATCH body
type UpdateStatusRequest struct {
	ID     string            `json:"id"`
	Status domain.LeadStatus `json:"status"`
}

// Create handles POST /api/leads with either a multipart form or a JSON body
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var (
		in validation.Submission
		ok bool
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, ok = h.readMultipart(w, r)
	} else {
		in = validation.Submission{}
		ok = decodeJSON(w, r, &in)
	}
	if !ok {
		return
	}

	lead, err := h.leads.Submit(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to process request")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Lead submitted successfully", ID: lead.ID})
}

func (h *LeadHandler) readMultipart(w http.ResponseWriter, r *http.Request) (validation.Submission, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	in := validation.Submission{}
	for key, values := range r.MultipartForm.Value {
		in[key] = values
	}
	// browsers may post repeated checkbox values with a [] suffix
	if extra, ok := r.MultipartForm.Value["visasOfInterest[]"]; ok {
		visas, _ := in["visasOfInterest"].([]string)
		in["visasOfInterest"] = append(visas, extra...)
		delete(in, "visasOfInterest[]")
	}

	if headers := r.MultipartForm.File["resume"]; len(headers) > 0 {
		files := make([]domain.ResumeFile, 0, len(headers))
		for _, fh := range headers {
			files = append(files, domain.ResumeFile{
				FileName:    fh.Filename,
				Size:        fh.Size,
				ContentType: h.resumeContentType(fh),
			})
		}
		in["resume"] = files
	}

	return in, true
}

// resumeContentType trusts the part header unless it is missing or generic,
// in which case the leading bytes are sniffed
func (h *LeadHandler) resumeContentType(fh *multipart.FileHeader) string {
	declared := fh.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Warn("failed to open resume part", slog.String("error", err.Error()))
		return declared
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		h.logger.Warn("failed to detect resume type", slog.String("error", err.Error()))
		return declared
	}
	return mt.String()
}

// List handles GET /api/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load leads")
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}

	writeJSON(w, http.StatusOK, leads)
}

// Delete handles DELETE /api/leads with body {"id": ...}
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req LeadIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := callerID(r)
	if err := h.leads.Delete(r.Context(), req.ID); err != nil {
		h.audit.LogDeletion(r.Context(), userID, req.ID, "failed")
		writeServiceError(w, h.logger, err, "Failed to delete lead")
		return
	}

	h.audit.LogDeletion(r.Context(), userID, req.ID, "success")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Lead deleted successfully"})
}

// UpdateStatus handles PATCH /api/leads with body {"id": ..., "status": ...}
func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := callerID(r)
	if err := h.leads.UpdateStatus(r.Context(), req.ID, req.Status); err != nil {
		h.audit.LogStatusChange(r.Context(), userID, req.ID, string(req.Status), "failed")
		writeServiceError(w, h.logger, err, "Failed to update lead")
		return
	}

	h.audit.LogStatusChange(r.Context(), userID, req.ID, string(req.Status), "success")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Lead updated successfully"})
}

func callerID(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}
