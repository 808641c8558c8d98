package panel

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"time"
)

//go:embed web/*
var content embed.FS

// loginPage is the self-contained login form. It must not reference other
// console assets, which are only served to a logged-in admin.
const loginPage = "login.html"

// Handler returns an http.Handler that serves the admin console.
//
// When dir is non-empty and the directory exists, assets are served from the
// filesystem so the console can be edited without a rebuild. Otherwise the
// embedded assets are used.
//
// Unknown paths fall back to index.html so client-side routes resolve.
// Panics if the embedded web assets cannot be loaded (build error).
func Handler(dir string) http.Handler {
	fsys := assets(dir)
	fileServer := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The console is small and unhashed; always revalidate.
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		upath := path.Clean(r.URL.Path)
		if upath == "." || upath == "/" {
			fileServer.ServeHTTP(w, r)
			return
		}

		if info, err := fs.Stat(fsys, upath[1:]); err != nil || info.IsDir() {
			r.URL.Path = "/"
			fileServer.ServeHTTP(w, r)
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}

// LoginHandler serves the login page for every request it receives.
// A dir without its own login.html still gets the embedded one.
func LoginHandler(dir string) http.Handler {
	fsys := assets(dir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := fsys.Open(loginPage)
		if err != nil {
			f, err = embedded().Open(loginPage)
		}
		if err != nil {
			http.Error(w, "login page unavailable", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if rs, ok := f.(io.ReadSeeker); ok {
			http.ServeContent(w, r, loginPage, time.Time{}, rs)
			return
		}
		_, _ = io.Copy(w, f)
	})
}

func assets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return embedded()
}

func embedded() fs.FS {
	webFS, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("panel: failed to load embedded web assets: %v", err))
	}
	return webFS
}
