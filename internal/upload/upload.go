package upload

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds Batch when the caller passes a limit <= 0.
const DefaultConcurrency = 4

// Sentinel errors for rejected files.
var (
	ErrEmptyFile   = errors.New("upload: file is empty")
	ErrTooLarge    = errors.New("upload: file exceeds size limit")
	ErrNotAnImage  = errors.New("upload: file is not an image")
	ErrNoFilesSent = errors.New("upload: no file uploaded")
)

// File is one uploaded file held in memory.
type File struct {
	Name string
	Data []byte
}

// Uploader persists a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// Remover deletes a stored file by the URL Upload returned for it.
type Remover interface {
	Remove(ctx context.Context, url string) error
}

// Result is the outcome of one file in a batch.
type Result struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
	Size  int64  `json:"-"`
}

// Batch uploads files with at most limit in flight and returns results in
// input order. A failed file never cancels the others; only ctx does.
func Batch(ctx context.Context, u Uploader, files []File, limit int) []Result {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(files))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, f := range files {
		g.Go(func() error {
			res := Result{Name: f.Name, Size: int64(len(f.Data))}
			if err := ctx.Err(); err != nil {
				res.Error = err.Error()
				results[i] = res
				return nil
			}
			url, err := u.Upload(ctx, f)
			if err != nil {
				res.Error = err.Error()
			} else {
				res.OK = true
				res.URL = url
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record failures in results and always return nil

	return results
}

// URLs returns the URLs of the successful results, in order.
func URLs(results []Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.OK {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// sniffImage reports whether data is a raster image. SVG is refused since it
// can carry script and uploads are served from the site's own origin.
func sniffImage(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}
