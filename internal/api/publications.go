package api

import (
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/gorilla/mux"
)

// publicationRequest is the wire form of a new publication. data_publicacao
// accepts RFC3339 or the local forms produced by date inputs.
type publicationRequest struct {
	PublishedAt string `json:"data_publicacao"`
	Link        string `json:"link"`
	Topic       string `json:"tema"`
	Text        string `json:"texto"`
}

type publicationPatchRequest struct {
	PublishedAt *string `json:"data_publicacao"`
	Link        *string `json:"link"`
	Topic       *string `json:"tema"`
	Text        *string `json:"texto"`
}

func (h *Handler) publicationInput(req publicationRequest) (models.PublicationInput, error) {
	in := models.PublicationInput{Link: req.Link, Topic: req.Topic, Text: req.Text}
	if req.PublishedAt != "" {
		at, err := models.ParseTimestamp(req.PublishedAt, h.location)
		if err != nil {
			return models.PublicationInput{}, err
		}
		in.PublishedAt = at
	}
	return in, nil
}

func (h *Handler) listPublications(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	posts, err := h.social.PostsFor(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) getPublication(w http.ResponseWriter, r *http.Request) {
	post, err := h.social.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) createPublication(w http.ResponseWriter, r *http.Request) {
	var req publicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := h.publicationInput(req)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.social.CreatePost(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) createPublications(w http.ResponseWriter, r *http.Request) {
	var reqs []publicationRequest
	if err := decodeJSON(r, &reqs); err != nil {
		writeError(w, err)
		return
	}

	ins := make([]models.PublicationInput, len(reqs))
	for i, req := range reqs {
		in, err := h.publicationInput(req)
		if err != nil {
			writeError(w, fmt.Errorf("publicação %d: %w", i+1, err))
			return
		}
		ins[i] = in
	}
	if err := models.ValidatePublications(ins); err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.social.CreatePosts(r.Context(), ins)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, posts)
}

func (h *Handler) updatePublication(w http.ResponseWriter, r *http.Request) {
	var req publicationPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := models.PublicationPatch{Link: req.Link, Topic: req.Topic, Text: req.Text}
	if req.PublishedAt != nil {
		at, err := models.ParseTimestamp(*req.PublishedAt, h.location)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.PublishedAt = &at
	}
	if err := patch.Validate(); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.social.UpdatePost(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) deletePublication(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeletePost(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publicationTrend(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	trend, err := h.social.TrendFor(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (h *Handler) publicationStats(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.social.StatsFor(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// publicationDashboard makes the query filter the active one and returns
// every publication view for it.
func (h *Handler) publicationDashboard(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.social.ApplyFilters(filters)

	snap, err := h.social.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.social.ExportReportFor(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}

func (h *Handler) listArchivedReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.social.ArchivedReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) getArchivedReport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := h.social.ArchivedReport(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) deleteArchivedReport(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeleteArchivedReport(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
