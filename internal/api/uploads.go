package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
	"github.com/PawornpratKongdaeng/shodaiev/internal/upload"
)

const (
	// maxBatchFiles caps the files accepted by one upload request.
	maxBatchFiles = 20

	// multipartMemory is how much of a multipart form is kept in memory
	// before spilling to temp files.
	multipartMemory = 32 << 20

	defaultUploadMaxBytes = 10 << 20
)

// Upload targets: where the resulting URLs are appended, if anywhere.
const (
	targetNone          = ""
	targetHomeGallery   = "homeGallery"
	targetHeroImages    = "heroImages"
	targetServiceDetail = "serviceDetail"
)

type uploadResponse struct {
	OK       bool   `json:"ok"`
	URL      string `json:"url,omitempty"`
	Message  string `json:"message,omitempty"`
	Revision string `json:"revision,omitempty"`
}

type batchResponse struct {
	OK       bool            `json:"ok"`
	Results  []upload.Result `json:"results"`
	Revision string          `json:"revision,omitempty"`
}

// uploadTarget says where uploaded URLs go. Parsed from the form fields
// target, topicId and sectionId.
type uploadTarget struct {
	kind      string
	topicID   string
	sectionID string
}

func (t uploadTarget) section() string {
	switch t.kind {
	case targetHomeGallery:
		return sectionGallery
	case targetHeroImages:
		return sectionHeroImages
	default:
		return sectionDetails
	}
}

// apply returns the store update that appends urls to the target.
func (t uploadTarget) apply(urls []string) func(*siteconfig.SiteConfig) error {
	switch t.kind {
	case targetHomeGallery:
		return func(c *siteconfig.SiteConfig) error {
			c.HomeGallery = siteconfig.AppendURLs(c.HomeGallery, urls...)
			return nil
		}
	case targetHeroImages:
		return func(c *siteconfig.SiteConfig) error {
			c.HeroImages = siteconfig.AppendURLs(c.HeroImages, urls...)
			return nil
		}
	default:
		update := siteconfig.AppendDetailImages(urls...)
		if t.sectionID != "" {
			update = siteconfig.AppendSectionImages(t.sectionID, urls...)
		}
		return detailEdit(t.topicID, update)
	}
}

func parseUploadTarget(form *multipart.Form) (uploadTarget, error) {
	t := uploadTarget{
		kind:      formValue(form, "target"),
		topicID:   formValue(form, "topicId"),
		sectionID: formValue(form, "sectionId"),
	}
	switch t.kind {
	case targetNone, targetHomeGallery, targetHeroImages:
		return t, nil
	case targetServiceDetail:
		if t.topicID == "" {
			return t, fmt.Errorf("%w: topicId is required for target serviceDetail", siteconfig.ErrInvalidPatch)
		}
		return t, nil
	default:
		return t, fmt.Errorf("%w: unknown upload target %q", siteconfig.ErrInvalidPatch, t.kind)
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// handleUpload stores one image ("file") or a batch ("files").
//
// A single file answers {ok, url}. A batch answers one result per file and
// never fails as a whole because one file did. With a target, the URLs of the
// stored files are appended to that list in a single store update.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "uploads not configured")
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "upload too large")
			return
		}
		writeJSON(w, http.StatusBadRequest, uploadResponse{OK: false, Message: "No file uploaded"})
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	target, err := parseUploadTarget(r.MultipartForm)
	if err != nil {
		s.writeStoreError(w, r, sectionUploadBatch, err)
		return
	}
	if !s.checkUploadTarget(w, r, target) {
		return
	}

	if single := r.MultipartForm.File["file"]; len(single) > 0 {
		s.uploadSingle(w, r, single[0], target)
		return
	}

	headers := r.MultipartForm.File["files"]
	switch {
	case len(headers) == 0:
		writeJSON(w, http.StatusBadRequest, uploadResponse{OK: false, Message: "No file uploaded"})
		return
	case len(headers) > maxBatchFiles:
		writeBadRequest(w, fmt.Sprintf("at most %d files per upload", maxBatchFiles))
		return
	}
	s.uploadBatch(w, r, headers, target)
}

func (s *Server) uploadSingle(w http.ResponseWriter, r *http.Request, fh *multipart.FileHeader, target uploadTarget) {
	f, err := s.readUpload(fh)
	if err != nil {
		s.metrics.ObserveUpload(0, false)
		writeUploadFailure(w, err)
		return
	}

	url, err := s.uploader.Upload(r.Context(), f)
	if err != nil {
		s.metrics.ObserveUpload(0, false)
		s.logger.Warn("upload failed", "name", fh.Filename, "error", err, "request_id", requestID(r))
		writeUploadFailure(w, err)
		return
	}
	s.metrics.ObserveUpload(int64(len(f.Data)), true)

	resp := uploadResponse{OK: true, URL: url}
	if target.kind != targetNone {
		cfg := s.update(w, r, target.section(), target.apply([]string{url}))
		if cfg == nil {
			s.discardUploads(r, []string{url})
			return
		}
		resp.Revision = siteconfig.Revision(cfg)
	}
	s.auditLog(r, audit.Entry{Action: audit.ActionUpload, Fields: []string{url}})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) uploadBatch(w http.ResponseWriter, r *http.Request, headers []*multipart.FileHeader, target uploadTarget) {
	results := make([]upload.Result, len(headers))
	files := make([]upload.File, 0, len(headers))
	indexes := make([]int, 0, len(headers))
	for i, fh := range headers {
		f, err := s.readUpload(fh)
		if err != nil {
			results[i] = upload.Result{Name: fh.Filename, Error: err.Error()}
			continue
		}
		files = append(files, f)
		indexes = append(indexes, i)
	}

	for j, res := range upload.Batch(r.Context(), s.uploader, files, s.uploadCfg.Concurrency) {
		results[indexes[j]] = res
	}

	allOK := true
	for _, res := range results {
		s.metrics.ObserveUpload(res.Size, res.OK)
		if !res.OK {
			allOK = false
			s.logger.Warn("upload failed", "name", res.Name, "error", res.Error, "request_id", requestID(r))
		}
	}

	resp := batchResponse{OK: allOK, Results: results}
	urls := upload.URLs(results)
	if target.kind != targetNone && len(urls) > 0 {
		cfg := s.update(w, r, target.section(), target.apply(urls))
		if cfg == nil {
			s.discardUploads(r, urls)
			return
		}
		resp.Revision = siteconfig.Revision(cfg)
	}
	if len(urls) > 0 {
		s.auditLog(r, audit.Entry{Action: audit.ActionUpload, Fields: urls})
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkUploadTarget answers the request and returns false when the target
// cannot take the uploads, so no file is written for it.
func (s *Server) checkUploadTarget(w http.ResponseWriter, r *http.Request, target uploadTarget) bool {
	if target.kind != targetServiceDetail {
		return true
	}
	cfg, err := s.store.Load(r.Context())
	if err == nil {
		err = target.apply(nil)(cfg)
	}
	if err != nil {
		s.writeStoreError(w, r, target.section(), err)
		return false
	}
	return true
}

// discardUploads removes files whose target update failed.
func (s *Server) discardUploads(r *http.Request, urls []string) {
	rm, ok := s.uploader.(upload.Remover)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	for _, u := range urls {
		if err := rm.Remove(ctx, u); err != nil {
			s.logger.Warn("removing orphaned upload failed", "url", u, "error", err, "request_id", requestID(r))
		}
	}
}

// readUpload reads one multipart file into memory, enforcing the size limit.
func (s *Server) readUpload(fh *multipart.FileHeader) (upload.File, error) {
	limit := s.uploadCfg.MaxBytes
	if limit <= 0 {
		limit = defaultUploadMaxBytes
	}
	if fh.Size > limit {
		return upload.File{}, fmt.Errorf("%w: %d > %d bytes", upload.ErrTooLarge, fh.Size, limit)
	}

	src, err := fh.Open()
	if err != nil {
		return upload.File{}, fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return upload.File{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > limit {
		return upload.File{}, fmt.Errorf("%w: more than %d bytes", upload.ErrTooLarge, limit)
	}
	return upload.File{Name: fh.Filename, Data: data}, nil
}

// writeUploadFailure answers a rejected file with 400 and anything else with 500.
func writeUploadFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrEmptyFile), errors.Is(err, upload.ErrTooLarge), errors.Is(err, upload.ErrNotAnImage):
		writeJSON(w, http.StatusBadRequest, uploadResponse{OK: false, Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, uploadResponse{OK: false, Message: "Upload failed"})
	}
}

// uploadBodyLimit bounds a whole multipart request.
func (s *Server) uploadBodyLimit() int64 {
	per := s.uploadCfg.MaxBytes
	if per <= 0 {
		per = defaultUploadMaxBytes
	}
	return per*maxBatchFiles + defaultMaxBodyBytes
}

// uploadsHandler serves stored uploads without directory listings.
func (s *Server) uploadsHandler() http.Handler {
	files := http.FileServer(http.Dir(s.uploadCfg.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
