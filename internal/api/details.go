package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

type detailsPayload struct {
	ServiceDetails []siteconfig.ServiceDetail `json:"serviceDetails"`
}

type detailResponse struct {
	OK            bool                     `json:"ok"`
	Revision      string                   `json:"revision"`
	ServiceDetail siteconfig.ServiceDetail `json:"serviceDetail"`
	SectionID     string                   `json:"sectionId,omitempty"`
}

type sectionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleGetDetails(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detailsPayload{ServiceDetails: cfg.ServiceDetails})
}

func (s *Server) handleGetDetail(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicId")
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	d, found := siteconfig.FindServiceDetail(cfg.ServiceDetails, topicID)
	if !found {
		writeNotFound(w, "no service detail for topic "+topicID)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSaveDetails replaces every service detail. Two records for the same
// topic are rejected rather than silently merged.
func (s *Server) handleSaveDetails(w http.ResponseWriter, r *http.Request) {
	var req detailsPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ServiceDetails == nil {
		writeBadRequest(w, "serviceDetails must be an array")
		return
	}
	if err := siteconfig.ValidateServiceDetails(req.ServiceDetails); err != nil {
		s.writeStoreError(w, r, sectionDetails, err)
		return
	}
	s.savePatch(w, r, sectionDetails, &siteconfig.Patch{ServiceDetails: req.ServiceDetails})
}

func (s *Server) handleUpsertDetail(w http.ResponseWriter, r *http.Request) {
	var req siteconfig.DetailInput
	if !decodeBody(w, r, &req) {
		return
	}
	s.editDetail(w, r, siteconfig.SetDetailFields(req), "")
}

func (s *Server) handleAppendDetailImages(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		writeBadRequest(w, "urls must be a non-empty array")
		return
	}
	s.editDetail(w, r, siteconfig.AppendDetailImages(req.URLs...), "")
}

func (s *Server) handleRemoveDetailImage(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}
	s.editDetail(w, r, siteconfig.RemoveDetailImage(req.URL), "")
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var title, desc string
	if req.Title != nil {
		title = *req.Title
	}
	if req.Description != nil {
		desc = *req.Description
	}
	update, sectionID := siteconfig.AddSection(title, desc)
	s.editDetail(w, r, update, sectionID)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sectionID := chi.URLParam(r, "sectionId")
	s.editDetail(w, r, siteconfig.UpdateSection(sectionID, req.Title, req.Description), sectionID)
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	s.editDetail(w, r, siteconfig.RemoveSection(chi.URLParam(r, "sectionId")), "")
}

func (s *Server) handleAppendSectionImages(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		writeBadRequest(w, "urls must be a non-empty array")
		return
	}
	sectionID := chi.URLParam(r, "sectionId")
	s.editDetail(w, r, siteconfig.AppendSectionImages(sectionID, req.URLs...), sectionID)
}

func (s *Server) handleRemoveSectionImage(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}
	sectionID := chi.URLParam(r, "sectionId")
	s.editDetail(w, r, siteconfig.RemoveSectionImage(sectionID, req.URL), sectionID)
}

// editDetail applies update to the service detail of the topic in the URL,
// creating the detail on first edit. The topic itself must exist.
func (s *Server) editDetail(w http.ResponseWriter, r *http.Request, update siteconfig.DetailUpdater, sectionID string) {
	topicID := chi.URLParam(r, "topicId")

	cfg := s.update(w, r, sectionDetails, detailEdit(topicID, update))
	if cfg == nil {
		return
	}
	d, _ := siteconfig.FindServiceDetail(cfg.ServiceDetails, topicID)
	writeJSON(w, http.StatusOK, detailResponse{
		OK:            true,
		Revision:      siteconfig.Revision(cfg),
		ServiceDetail: d,
		SectionID:     sectionID,
	})
}

// detailEdit returns a store update applying update to topicID's detail.
func detailEdit(topicID string, update siteconfig.DetailUpdater) func(*siteconfig.SiteConfig) error {
	return func(c *siteconfig.SiteConfig) error {
		if _, ok := siteconfig.FindTopic(c, topicID); !ok {
			return fmt.Errorf("%w: %s", siteconfig.ErrTopicNotFound, topicID)
		}
		details, err := siteconfig.UpsertServiceDetail(c.ServiceDetails, topicID, update)
		if err != nil {
			return err
		}
		c.ServiceDetails = details
		return nil
	}
}
