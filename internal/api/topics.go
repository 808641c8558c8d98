package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

type topicsPayload struct {
	Topics []siteconfig.Topic `json:"topics"`
}

type topicResponse struct {
	OK       bool             `json:"ok"`
	Revision string           `json:"revision"`
	Topic    siteconfig.Topic `json:"topic"`
}

func (s *Server) handleGetTopics(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, topicsPayload{Topics: cfg.Topics})
}

// handleSaveTopics replaces the topic list, assigning slug ids in order.
func (s *Server) handleSaveTopics(w http.ResponseWriter, r *http.Request) {
	var req topicsPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Topics == nil {
		writeBadRequest(w, "topics must be an array")
		return
	}
	s.savePatch(w, r, sectionTopics, &siteconfig.Patch{Topics: siteconfig.AssignTopicIDs(req.Topics)})
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req siteconfig.Topic
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeBadRequest(w, "title is required")
		return
	}

	var created siteconfig.Topic
	cfg := s.update(w, r, sectionTopics, func(c *siteconfig.SiteConfig) error {
		created = siteconfig.CreateTopic(c, req)
		return nil
	})
	if cfg != nil {
		writeJSON(w, http.StatusCreated, topicResponse{OK: true, Revision: siteconfig.Revision(cfg), Topic: created})
	}
}

// handleUpdateTopic edits the topic addressed by its current id. The body may
// carry a new id; collisions are resolved against the other topics only.
func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	originalID := chi.URLParam(r, "id")
	var req siteconfig.Topic
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeBadRequest(w, "title is required")
		return
	}

	var updated siteconfig.Topic
	cfg := s.update(w, r, sectionTopics, func(c *siteconfig.SiteConfig) error {
		t, err := siteconfig.UpdateTopic(c, originalID, req)
		updated = t
		return err
	})
	if cfg != nil {
		writeJSON(w, http.StatusOK, topicResponse{OK: true, Revision: siteconfig.Revision(cfg), Topic: updated})
	}
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg := s.update(w, r, sectionTopics, func(c *siteconfig.SiteConfig) error {
		return siteconfig.DeleteTopic(c, id)
	})
	if cfg != nil {
		writeJSON(w, http.StatusOK, savedResponse{OK: true, Revision: siteconfig.Revision(cfg)})
	}
}
