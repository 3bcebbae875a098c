package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/gorilla/mux"
)

type emailRequest struct {
	Recipient    string `json:"destinatario"`
	Subject      string `json:"assunto"`
	SentAt       string `json:"data_envio"`
	State        string `json:"estado"`
	Municipality string `json:"municipio"`
	Classified   bool   `json:"classificado"`
}

type emailPatchRequest struct {
	Recipient    *string `json:"destinatario"`
	Subject      *string `json:"assunto"`
	SentAt       *string `json:"data_envio"`
	State        *string `json:"estado"`
	Municipality *string `json:"municipio"`
	Classified   *bool   `json:"classificado"`
}

type reclassifyResponse struct {
	Updated  []models.Email `json:"updated"`
	Failures []failureEntry `json:"failures,omitempty"`
}

func (h *Handler) emailInput(req emailRequest) (models.EmailInput, error) {
	in := models.EmailInput{
		Recipient:    req.Recipient,
		Subject:      req.Subject,
		State:        req.State,
		Municipality: req.Municipality,
		Classified:   req.Classified,
	}
	if req.SentAt != "" {
		at, err := models.ParseTimestamp(req.SentAt, h.location)
		if err != nil {
			return models.EmailInput{}, err
		}
		in.SentAt = at
	}
	return in, nil
}

func (h *Handler) listEmails(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	emails, err := h.emails.EmailsFor(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

func (h *Handler) pendingEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.emails.Pending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

func (h *Handler) getEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.emails.GetEmail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (h *Handler) createEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := h.emailInput(req)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	email, err := h.emails.CreateEmail(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, email)
}

func (h *Handler) createEmails(w http.ResponseWriter, r *http.Request) {
	var reqs []emailRequest
	if err := decodeJSON(r, &reqs); err != nil {
		writeError(w, err)
		return
	}

	ins := make([]models.EmailInput, len(reqs))
	for i, req := range reqs {
		in, err := h.emailInput(req)
		if err != nil {
			writeError(w, fmt.Errorf("email %d: %w", i+1, err))
			return
		}
		ins[i] = in
	}
	if err := models.ValidateEmails(ins); err != nil {
		writeError(w, err)
		return
	}

	emails, err := h.emails.CreateEmails(r.Context(), ins)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, emails)
}

func (h *Handler) updateEmail(w http.ResponseWriter, r *http.Request) {
	var req emailPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := models.EmailPatch{
		Recipient:    req.Recipient,
		Subject:      req.Subject,
		State:        req.State,
		Municipality: req.Municipality,
		Classified:   req.Classified,
	}
	if req.SentAt != nil {
		at, err := models.ParseTimestamp(*req.SentAt, h.location)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.SentAt = &at
	}
	if patch.IsEmpty() {
		writeError(w, models.ValidationError("nenhum campo para atualizar"))
		return
	}

	email, err := h.emails.UpdateEmail(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (h *Handler) deleteEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.emails.DeleteEmail(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reclassifyEmails(w http.ResponseWriter, r *http.Request) {
	var patches []models.ReclassifyPatch
	if err := decodeJSON(r, &patches); err != nil {
		writeError(w, err)
		return
	}
	for i, p := range patches {
		if p.ID == "" {
			writeError(w, models.ValidationError(fmt.Sprintf("item %d: id é obrigatório", i+1)))
			return
		}
	}

	updated, err := h.emails.Reclassify(r.Context(), patches)
	var batchErr *models.PartialBatchError
	switch {
	case errors.As(err, &batchErr):
		resp := reclassifyResponse{Updated: updated}
		for _, f := range batchErr.Failures {
			resp.Failures = append(resp.Failures, failureEntry{ID: f.ID, Error: f.Err.Error()})
		}
		writeJSON(w, http.StatusMultiStatus, resp)
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, reclassifyResponse{Updated: updated})
	}
}

func (h *Handler) emailStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.emails.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) emailsByState(w http.ResponseWriter, r *http.Request) {
	groups, err := h.emails.ByState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) topRecipients(w http.ResponseWriter, r *http.Request) {
	groups, err := h.emails.TopRecipients(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) emailTrend(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	trend, err := h.emails.TrendFor(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (h *Handler) emailDashboard(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.emails.ApplyFilters(filters)

	snap, err := h.emails.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
