package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// savedResponse is returned by every successful admin write.
type savedResponse struct {
	OK       bool   `json:"ok"`
	Revision string `json:"revision"`
}

// decodeBody decodes a JSON request body into v and writes a 400 (or 413)
// itself when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
	case errors.Is(err, io.EOF):
		writeBadRequest(w, "request body is required")
	default:
		writeBadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
	}
	return false
}

// load reads the current document for a GET handler.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*siteconfig.SiteConfig, bool) {
	cfg, err := s.store.Load(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "load", err)
		return nil, false
	}
	return cfg, true
}

// snapshot returns the pre-write document for the change log; nil when there
// is no change log or the read fails.
func (s *Server) snapshot(r *http.Request) *siteconfig.SiteConfig {
	if s.auditCh == nil {
		return nil
	}
	cfg, err := s.store.Load(r.Context())
	if err != nil {
		return nil
	}
	return cfg
}

// savePatch merges patch into the stored document on behalf of section.
func (s *Server) savePatch(w http.ResponseWriter, r *http.Request, section string, patch *siteconfig.Patch) {
	before := s.snapshot(r)
	after, err := s.store.SavePartial(r.Context(), patch)
	s.finishSave(w, r, section, before, after, err)
}

// update runs fn against the stored document on behalf of section.
// It returns the written document, or nil after writing an error response.
func (s *Server) update(w http.ResponseWriter, r *http.Request, section string, fn func(*siteconfig.SiteConfig) error) *siteconfig.SiteConfig {
	before := s.snapshot(r)
	after, err := s.store.Update(r.Context(), fn)
	if err != nil {
		s.metrics.ObserveSave(section, false)
		s.writeStoreError(w, r, section, err)
		return nil
	}
	s.metrics.ObserveSave(section, true)
	s.auditChange(r, audit.ActionSave, section, before, after)
	setETag(w, after)
	return after
}

func (s *Server) finishSave(w http.ResponseWriter, r *http.Request, section string, before, after *siteconfig.SiteConfig, err error) {
	if err != nil {
		s.metrics.ObserveSave(section, false)
		s.writeStoreError(w, r, section, err)
		return
	}
	s.metrics.ObserveSave(section, true)
	s.auditChange(r, audit.ActionSave, section, before, after)
	writeSaved(w, after)
}

func writeSaved(w http.ResponseWriter, cfg *siteconfig.SiteConfig) {
	setETag(w, cfg)
	writeJSON(w, http.StatusOK, savedResponse{OK: true, Revision: siteconfig.Revision(cfg)})
}

// setETag advertises the document revision as a strong entity tag.
func setETag(w http.ResponseWriter, cfg *siteconfig.SiteConfig) {
	w.Header().Set("ETag", `"`+siteconfig.Revision(cfg)+`"`)
}

// parseETag strips the quotes and weak prefix from an entity tag.
func parseETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
