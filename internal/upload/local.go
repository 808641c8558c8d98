package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

const (
	defaultExt      = ".png"
	defaultBase     = "image"
	maxNameAttempts = 100
)

// Local writes files into Dir and returns URLs under Prefix.
//
// Files are named <base>-<unix millis><ext>; base is the slugified original
// name and ext defaults to .png. Existing files are never overwritten.
type Local struct {
	dir      string
	prefix   string
	maxBytes int64
	now      func() time.Time
}

// NewLocal creates dir if needed. maxBytes <= 0 disables the size check.
func NewLocal(dir, prefix string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // uploads are served publicly
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	if prefix == "" {
		prefix = "/uploads"
	}
	return &Local{
		dir:      dir,
		prefix:   strings.TrimRight(prefix, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Dir is the directory files are written to.
func (l *Local) Dir() string {
	return l.dir
}

// Upload implements Uploader.
func (l *Local) Upload(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.Data) == 0 {
		return "", ErrEmptyFile
	}
	if l.maxBytes > 0 && int64(len(f.Data)) > l.maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(f.Data), l.maxBytes)
	}
	if !sniffImage(f.Data) {
		return "", ErrNotAnImage
	}

	base, ext := splitName(f.Name)
	stamp := strconv.FormatInt(l.now().UnixMilli(), 10)

	for attempt := range maxNameAttempts {
		name := base + "-" + stamp + ext
		if attempt > 0 {
			name = base + "-" + stamp + "-" + strconv.Itoa(attempt+1) + ext
		}

		err := l.writeExclusive(name, f.Data)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return l.prefix + "/" + name, nil
	}
	return "", fmt.Errorf("upload: no free file name for %q", f.Name)
}

// Remove implements Remover. A file that is already gone is not an error.
func (l *Local) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := strings.CutPrefix(url, l.prefix+"/")
	if !ok || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("upload: %q is not a stored upload", url)
	}
	err := os.Remove(filepath.Join(l.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

func (l *Local) writeExclusive(name string, data []byte) error {
	p := filepath.Join(l.dir, name)
	file, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // uploads are served publicly
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("creating %s: %w", name, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()  //nolint:errcheck // already failing
		os.Remove(p) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(p) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("closing %s: %w", name, err)
	}
	return nil
}

// splitName turns a client file name into a safe base and a lowercase extension.
func splitName(name string) (base, ext string) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext = strings.ToLower(path.Ext(name))
	base = strings.TrimSuffix(name, path.Ext(name))

	if ext == "" || siteconfig.Slugify(strings.TrimPrefix(ext, ".")) != strings.TrimPrefix(ext, ".") {
		ext = defaultExt
	}
	base = siteconfig.Slugify(base)
	if base == "" {
		base = defaultBase
	}
	return base, ext
}
