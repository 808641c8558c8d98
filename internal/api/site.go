package api

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// handleGetSite returns the whole document with its revision as ETag.
func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	setETag(w, cfg)
	writeJSON(w, http.StatusOK, cfg)
}

// handlePutSite replaces the whole document. With If-Match the write only
// happens if the stored revision still matches; otherwise 412.
func (s *Server) handlePutSite(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "reading request body failed")
		return
	}

	doc, err := siteconfig.DecodePatch(body)
	if err != nil {
		s.writeStoreError(w, r, sectionSite, err)
		return
	}
	if err := siteconfig.ValidateServiceDetails(doc.ServiceDetails); err != nil {
		s.writeStoreError(w, r, sectionSite, err)
		return
	}
	if doc.Theme != nil {
		if err := siteconfig.ValidateTheme(*doc.Theme); err != nil {
			s.writeStoreError(w, r, sectionSite, err)
			return
		}
	}

	before := s.snapshot(r)
	var after *siteconfig.SiteConfig
	if match := r.Header.Get("If-Match"); match != "" && match != "*" {
		after, err = s.store.SaveIfMatch(r.Context(), doc, parseETag(match))
	} else {
		after, err = s.store.Save(r.Context(), doc)
	}
	s.finishSave(w, r, sectionSite, before, after, err)
}

// handleReload drops the read cache, for edits made to the backend directly.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.store.Invalidate()
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	s.auditLog(r, audit.Entry{Action: audit.ActionReload, Revision: siteconfig.Revision(cfg)})
	writeSaved(w, cfg)
}

// handlePublicSite serves the document to the public site renderer.
func (s *Server) handlePublicSite(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	etag := `"` + siteconfig.Revision(cfg) + `"`
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && parseETag(match) == parseETag(etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Sitemap XML, https://www.sitemaps.org/protocol.html
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

// handleSitemap lists the home page, the product index, and one page per topic.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	set := buildSitemap(s.siteCfg.URL, cfg, time.Now().UTC())

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, xml.Header) //nolint:errcheck // Best-effort write to response
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		s.logger.Warn("writing sitemap failed", "error", err)
	}
}

func buildSitemap(siteURL string, cfg *siteconfig.SiteConfig, now time.Time) urlSet {
	base := strings.TrimRight(siteURL, "/")
	lastMod := now.Format("2006-01-02")

	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: base, LastMod: lastMod, ChangeFreq: "weekly", Priority: 1},
			{Loc: base + "/page/product", LastMod: lastMod, ChangeFreq: "weekly", Priority: 0.9},
		},
	}
	for _, t := range cfg.Topics {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/page/product/" + url.PathEscape(t.ID),
			LastMod:    lastMod,
			ChangeFreq: "monthly",
			Priority:   0.8,
		})
	}
	return set
}
