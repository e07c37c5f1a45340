// Package handler is the thin HTTP layer over the credential engine. It
// parses requests, delegates to the service, and maps domain-error codes to
// HTTP statuses; no business logic lives here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"safeguard/internal/credential/models"
	"safeguard/internal/credential/report"
	"safeguard/internal/credential/service"
	"safeguard/internal/credential/store"
	id "safeguard/pkg/domain"
	dErrors "safeguard/pkg/domain-errors"
	audit "safeguard/pkg/platform/audit"
	"safeguard/pkg/requestcontext"
)

type Handler struct {
	service    *service.Service
	sweep      *report.Sweep
	auditTrail audit.Store
	logger     *slog.Logger
}

func New(svc *service.Service, sweep *report.Sweep, auditTrail audit.Store, logger *slog.Logger) *Handler {
	return &Handler{service: svc, sweep: sweep, auditTrail: auditTrail, logger: logger}
}

// Routes mounts the credential API onto a chi router. Auth middleware is
// applied by the caller so tests can exercise handlers directly.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/credentials", h.createRecord)
		r.Route("/credentials/{recordID}", func(r chi.Router) {
			r.Get("/", h.getRecord)
			r.Get("/risk", h.getRisk)
			r.Get("/audit", h.getAuditTrail)
			r.Post("/start", h.startApplication)
			r.Post("/submit", h.submit)
			r.Post("/complete", h.complete)
			r.Post("/reject", h.reject)
			r.Post("/cancel", h.cancel)
		})
		r.Get("/subjects/{subjectID}/credentials", h.listSubjectRecords)
		r.Get("/orgs/{orgID}/compliance", h.getCompliance)
		r.Post("/orgs/{orgID}/compliance/sweep", h.runSweep)
	})
}

type createRecordRequest struct {
	SubjectID  string           `json:"subject_id"`
	OrgID      string           `json:"org_id"`
	Type       string           `json:"type"`
	CheckLevel string           `json:"check_level"`
	Roles      models.RoleFlags `json:"roles"`

	RenewalRequired             bool       `json:"renewal_required"`
	GracePeriodDays             int        `json:"grace_period_days"`
	NextRenewalDate             *time.Time `json:"next_renewal_date"`
	NextAuditDate               *time.Time `json:"next_audit_date"`
	ContinuingEducationRequired bool       `json:"continuing_education_required"`
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid subject_id"))
		return
	}
	orgID, err := id.ParseOrgID(req.OrgID)
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid org_id"))
		return
	}
	credType, err := models.ParseCredentialType(req.Type)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, err := h.service.CreateRecord(r.Context(), service.CreateParams{
		SubjectID:                   subjectID,
		OrgID:                       orgID,
		Type:                        credType,
		CheckLevel:                  models.CheckLevel(req.CheckLevel),
		Roles:                       req.Roles,
		RenewalRequired:             req.RenewalRequired,
		GracePeriodDays:             req.GracePeriodDays,
		NextRenewalDate:             req.NextRenewalDate,
		NextAuditDate:               req.NextAuditDate,
		ContinuingEducationRequired: req.ContinuingEducationRequired,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := h.recordID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	record, err := h.service.GetRecord(r.Context(), recordID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) getRisk(w http.ResponseWriter, r *http.Request) {
	recordID, err := h.recordID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.service.Risk(r.Context(), recordID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getAuditTrail(w http.ResponseWriter, r *http.Request) {
	recordID, err := h.recordID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	events, err := h.auditTrail.ListByRecord(r.Context(), recordID.String())
	if err != nil {
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit trail"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type startRequest struct {
	Reference string `json:"reference"`
}

func (h *Handler) startApplication(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	h.applyCommand(w, r, service.StartApplication{Reference: req.Reference})
}

type submitRequest struct {
	ExternalReference string `json:"external_reference"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	h.applyCommand(w, r, service.Submit{ExternalReference: req.ExternalReference})
}

type completeRequest struct {
	CertificateNumber string `json:"certificate_number"`
	Outcome           string `json:"outcome"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	outcome, err := models.ParseOutcome(req.Outcome)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.applyCommand(w, r, service.Complete{
		CertificateNumber: req.CertificateNumber,
		Outcome:           outcome,
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	h.applyCommand(w, r, service.Reject{Reason: req.Reason})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	h.applyCommand(w, r, service.Cancel{Reason: req.Reason})
}

func (h *Handler) applyCommand(w http.ResponseWriter, r *http.Request, cmd service.Command) {
	recordID, err := h.recordID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	record, err := h.service.Apply(r.Context(), recordID, cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) listSubjectRecords(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid subject id"))
		return
	}
	filter := store.ListFilter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseCredentialStatus(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		credType, err := models.ParseCredentialType(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.Type = credType
	}

	records, err := h.service.ListSubjectRecords(r.Context(), subjectID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) getCompliance(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid org id"))
		return
	}
	snapshot, err := h.sweep.Latest(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) runSweep(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid org id"))
		return
	}
	breakdown, err := h.sweep.Run(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) recordID(r *http.Request) (id.RecordID, error) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		return id.RecordID{}, dErrors.New(dErrors.CodeBadRequest, "invalid record id")
	}
	return recordID, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// statusForCode maps each domain-error code to a distinct caller-facing
// status so clients can tell retryable conflicts from input errors.
func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeIllegalTransition, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInsufficientCheckLevel:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var coded *dErrors.Error
	code := dErrors.CodeInternal
	message := "internal error"
	if errors.As(err, &coded) {
		code = coded.Code
		message = coded.Message
	}
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	h.writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": message,
	})
}
