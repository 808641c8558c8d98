package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PawornpratKongdaeng/shodaiev/internal/panel"
)

// healthCheckTimeout bounds each dependency check behind /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	// Public surface
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/api/site", s.handlePublicSite)
	r.Get("/sitemap.xml", s.handleSitemap)
	if s.uploadCfg.Dir != "" {
		prefix := uploadPrefix(s.uploadCfg.PublicPrefix)
		r.Handle(prefix+"/*", http.StripPrefix(prefix, s.uploadsHandler()))
	}

	// Admin console (embedded, gated; the login page is public)
	console := panel.Handler(s.panelDir)
	r.Get(loginPath, s.handleLoginPage(panel.LoginHandler(s.panelDir)))
	r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusMovedPermanently)
	})
	r.With(s.requirePageSession).Handle("/admin/*", http.StripPrefix("/admin", console))

	// Admin API
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(bodySizeLimitFor(s.cfg.MaxBodyBytes, s.uploadBodyLimit()))

		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPISession)

			r.Get("/session", s.handleSession)
			r.Get("/audit", s.handleListAudit)
			r.Post("/reload", s.handleReload)
			r.Post("/upload", s.handleUpload)

			r.Get("/site", s.handleGetSite)
			r.Put("/site", s.handlePutSite)

			r.Get("/hero", s.handleGetHero)
			r.Post("/hero", s.handleSaveHero)

			r.Get("/contact", s.handleGetContact)
			r.Post("/contact", s.handleSaveContact)

			r.Get("/theme", s.handleGetTheme)
			r.Post("/theme", s.handleSaveTheme)

			r.Get("/services", s.handleGetServices)
			r.Post("/services", s.handleSaveServices)

			r.Route("/homeGallery", func(r chi.Router) {
				r.Get("/", s.handleGetGallery)
				r.Post("/", s.handleSaveGallery)
				r.Post("/images", s.handleAppendGallery)
				r.Delete("/images", s.handleRemoveGallery)
				r.Post("/move", s.handleMoveGallery)
			})

			r.Route("/topics", func(r chi.Router) {
				r.Get("/", s.handleGetTopics)
				r.Post("/", s.handleSaveTopics)
				r.Post("/items", s.handleCreateTopic)
				r.Put("/items/{id}", s.handleUpdateTopic)
				r.Delete("/items/{id}", s.handleDeleteTopic)
			})

			r.Route("/serviceDetail", func(r chi.Router) {
				r.Get("/", s.handleGetDetails)
				r.Post("/", s.handleSaveDetails)

				r.Route("/{topicId}", func(r chi.Router) {
					r.Get("/", s.handleGetDetail)
					r.Put("/", s.handleUpsertDetail)
					r.Post("/images", s.handleAppendDetailImages)
					r.Delete("/images", s.handleRemoveDetailImage)
					r.Post("/sections", s.handleAddSection)

					r.Route("/sections/{sectionId}", func(r chi.Router) {
						r.Put("/", s.handleUpdateSection)
						r.Delete("/", s.handleRemoveSection)
						r.Post("/images", s.handleAppendSectionImages)
						r.Delete("/images", s.handleRemoveSectionImage)
					})
				})
			})
		})
	})

	return r
}

// bodySizeLimitFor applies the JSON limit everywhere except the upload route.
func bodySizeLimitFor(jsonLimit, uploadLimit int64) func(http.Handler) http.Handler {
	jsonMW := bodySizeLimit(jsonLimit)
	uploadMW := bodySizeLimit(uploadLimit)
	return func(next http.Handler) http.Handler {
		j, u := jsonMW(next), uploadMW(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/upload") {
				u.ServeHTTP(w, r)
				return
			}
			j.ServeHTTP(w, r)
		})
	}
}

func uploadPrefix(p string) string {
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return "/uploads"
	}
	return p
}

// handleLoginPage serves the login page, or sends an already logged-in admin
// straight to the console.
func (s *Server) handleLoginPage(page http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.sessionFromRequest(r); err == nil {
			http.Redirect(w, r, "/admin/", http.StatusFound)
			return
		}
		page.ServeHTTP(w, r)
	}
}

// handleHealth reports the server and its dependencies. Any failing
// dependency turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":         overall,
		"version":        s.version,
		"backend":        s.store.Backend(),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"checks":         checks,
	})
}
