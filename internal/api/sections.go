package api

import (
	"net/http"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// Section names used in the change log and metrics.
const (
	sectionHero        = "hero"
	sectionContact     = "contact"
	sectionGallery     = "homeGallery"
	sectionServices    = "services"
	sectionTopics      = "topics"
	sectionDetails     = "serviceDetail"
	sectionTheme       = "theme"
	sectionSite        = "site"
	sectionHeroImages  = "heroImages"
	sectionUploadBatch = "upload"
)

// heroPayload is the hero banner plus the contact links shown beside it.
type heroPayload struct {
	HeroTitle    *string  `json:"heroTitle"`
	HeroSubtitle *string  `json:"heroSubtitle"`
	HeroImageURL *string  `json:"heroImageUrl"`
	HeroImages   []string `json:"heroImages"`
	Phone        *string  `json:"phone"`
	Line         *string  `json:"line"`
	LineURL      *string  `json:"lineUrl"`
	Facebook     *string  `json:"facebook"`
	MapURL       *string  `json:"mapUrl"`
}

func (s *Server) handleGetHero(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, heroPayload{
		HeroTitle:    &cfg.HeroTitle,
		HeroSubtitle: &cfg.HeroSubtitle,
		HeroImageURL: &cfg.HeroImageURL,
		HeroImages:   cfg.HeroImages,
		Phone:        &cfg.Phone,
		Line:         &cfg.Line,
		LineURL:      &cfg.LineURL,
		Facebook:     &cfg.Facebook,
		MapURL:       &cfg.MapURL,
	})
}

func (s *Server) handleSaveHero(w http.ResponseWriter, r *http.Request) {
	var req heroPayload
	if !decodeBody(w, r, &req) {
		return
	}
	s.savePatch(w, r, sectionHero, &siteconfig.Patch{
		HeroTitle:    req.HeroTitle,
		HeroSubtitle: req.HeroSubtitle,
		HeroImageURL: req.HeroImageURL,
		HeroImages:   req.HeroImages,
		Phone:        req.Phone,
		Line:         req.Line,
		LineURL:      req.LineURL,
		Facebook:     req.Facebook,
		MapURL:       req.MapURL,
	})
}

// contactPayload is the contact block and business listing.
type contactPayload struct {
	Phone           *string  `json:"phone"`
	Line            *string  `json:"line"`
	LineURL         *string  `json:"lineUrl"`
	Facebook        *string  `json:"facebook"`
	MapURL          *string  `json:"mapUrl"`
	BusinessName    *string  `json:"businessName"`
	BusinessAddress *string  `json:"businessAddress"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	SEOTitle        *string  `json:"seoTitle"`
	SEODescription  *string  `json:"seoDescription"`
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, contactPayload{
		Phone:           &cfg.Phone,
		Line:            &cfg.Line,
		LineURL:         &cfg.LineURL,
		Facebook:        &cfg.Facebook,
		MapURL:          &cfg.MapURL,
		BusinessName:    &cfg.BusinessName,
		BusinessAddress: &cfg.BusinessAddress,
		Latitude:        cfg.Latitude,
		Longitude:       cfg.Longitude,
		SEOTitle:        &cfg.SEOTitle,
		SEODescription:  &cfg.SEODescription,
	})
}

func (s *Server) handleSaveContact(w http.ResponseWriter, r *http.Request) {
	var req contactPayload
	if !decodeBody(w, r, &req) {
		return
	}
	s.savePatch(w, r, sectionContact, &siteconfig.Patch{
		Phone:           req.Phone,
		Line:            req.Line,
		LineURL:         req.LineURL,
		Facebook:        req.Facebook,
		MapURL:          req.MapURL,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		SEOTitle:        req.SEOTitle,
		SEODescription:  req.SEODescription,
	})
}

type galleryPayload struct {
	HomeGallery []string `json:"homeGallery"`
}

type urlsRequest struct {
	URLs []string `json:"urls"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type moveRequest struct {
	Index     *int   `json:"index"`
	Direction string `json:"direction"`
}

func (s *Server) handleGetGallery(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, galleryPayload{HomeGallery: cfg.HomeGallery})
}

func (s *Server) handleSaveGallery(w http.ResponseWriter, r *http.Request) {
	var req galleryPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HomeGallery == nil {
		writeBadRequest(w, "homeGallery must be an array")
		return
	}
	s.savePatch(w, r, sectionGallery, &siteconfig.Patch{HomeGallery: req.HomeGallery})
}

func (s *Server) handleAppendGallery(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		writeBadRequest(w, "urls must be a non-empty array")
		return
	}
	cfg := s.update(w, r, sectionGallery, func(c *siteconfig.SiteConfig) error {
		c.HomeGallery = siteconfig.AppendURLs(c.HomeGallery, req.URLs...)
		return nil
	})
	if cfg != nil {
		writeJSON(w, http.StatusOK, galleryPayload{HomeGallery: cfg.HomeGallery})
	}
}

func (s *Server) handleRemoveGallery(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}
	cfg := s.update(w, r, sectionGallery, func(c *siteconfig.SiteConfig) error {
		c.HomeGallery = siteconfig.RemoveURL(c.HomeGallery, req.URL)
		return nil
	})
	if cfg != nil {
		writeJSON(w, http.StatusOK, galleryPayload{HomeGallery: cfg.HomeGallery})
	}
}

func (s *Server) handleMoveGallery(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeBadRequest(w, "index is required")
		return
	}
	cfg := s.update(w, r, sectionGallery, func(c *siteconfig.SiteConfig) error {
		moved, err := siteconfig.MoveURL(c.HomeGallery, *req.Index, req.Direction)
		if err != nil {
			return err
		}
		c.HomeGallery = moved
		return nil
	})
	if cfg != nil {
		writeJSON(w, http.StatusOK, galleryPayload{HomeGallery: cfg.HomeGallery})
	}
}

type servicesPayload struct {
	Services []siteconfig.ServiceItem `json:"services"`
}

func (s *Server) handleGetServices(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, servicesPayload{Services: cfg.Services})
}

func (s *Server) handleSaveServices(w http.ResponseWriter, r *http.Request) {
	var req servicesPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Services == nil {
		writeBadRequest(w, "services must be an array")
		return
	}
	s.savePatch(w, r, sectionServices, &siteconfig.Patch{Services: siteconfig.AssignServiceIDs(req.Services)})
}

type themePayload struct {
	Theme *siteconfig.Theme `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, themePayload{Theme: &cfg.Theme})
}

// handleSaveTheme merges the sent colour channels over the current theme;
// channels left out or sent empty keep their value.
func (s *Server) handleSaveTheme(w http.ResponseWriter, r *http.Request) {
	var req themePayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Theme == nil {
		writeBadRequest(w, "theme is required")
		return
	}
	if err := siteconfig.ValidateTheme(*req.Theme); err != nil {
		s.writeStoreError(w, r, sectionTheme, err)
		return
	}
	s.savePatch(w, r, sectionTheme, &siteconfig.Patch{Theme: req.Theme})
}
